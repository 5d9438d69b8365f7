package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Tuned scoring constants. The Strong/Moderate/Weak thresholds were
// calibrated against this exact formula; do not re-derive them.
const (
	normEpsilon = 1e-9
	pValueFloor = 1e-12
)

// Rank converts a correlation batch into the ordered, classified driver list.
// Score = min-max-normalized |r| × -log10(p clipped at the floor); the batch
// is sorted descending by score and optionally truncated to topK (0 = all).
// An empty batch yields an empty ranking. Input records are not mutated.
func Rank(records []CorrelationRecord, topK int, lookup MetadataLookup) []RankedDriver {
	ranked := make([]RankedDriver, 0, len(records))
	if len(records) == 0 {
		return ranked
	}

	rAbs := make([]float64, len(records))
	minAbs, maxAbs := math.Inf(1), math.Inf(-1)
	for i, rec := range records {
		rAbs[i] = math.Abs(rec.R)
		minAbs = math.Min(minAbs, rAbs[i])
		maxAbs = math.Max(maxAbs, rAbs[i])
	}
	normalize := len(records) > 1 && maxAbs != minAbs

	for i, rec := range records {
		rNorm := rAbs[i]
		if normalize {
			rNorm = (rAbs[i] - minAbs) / (maxAbs - minAbs + normEpsilon)
		}
		score := rNorm * -math.Log10(math.Max(rec.PValue, pValueFloor))

		d := RankedDriver{
			CorrelationRecord: rec,
			Score:             score,
			Strength:          strengthOf(rec.R),
			Explanation:       explain(rec),
		}
		if lookup != nil {
			if info, ok := lookup(baseDriverName(rec.DriverName)); ok {
				d.Description = info.Description
				d.Unit = info.Unit
				d.NormalRange = info.NormalRange
			}
		}
		ranked = append(ranked, d)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// strengthOf classifies effect size by |r|.
func strengthOf(r float64) string {
	switch abs := math.Abs(r); {
	case abs > 0.7:
		return StrengthStrong
	case abs > 0.3:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// explain builds the human-readable one-liner for a ranked driver.
func explain(rec CorrelationRecord) string {
	sign := "positive"
	if rec.R < 0 {
		sign = "negative"
	}
	confidence := "moderate confidence"
	if rec.PValue < 0.05 {
		confidence = "statistical significance"
	}
	return fmt.Sprintf("%s %s correlation with %s", strengthOf(rec.R), sign, confidence)
}

// baseDriverName strips the KPI-value prefix used by upstream dataset
// mapping, so metadata lookups key on the plain driver name.
func baseDriverName(name string) string {
	return strings.TrimPrefix(name, "value_")
}
