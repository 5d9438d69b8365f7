package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/Feld1985/crossnection-mvp/internal/envelope"
	"github.com/Feld1985/crossnection-mvp/internal/table"
)

// skewThreshold decides Pearson vs Spearman per driver.
const skewThreshold = 1.0

// Correlate computes r and p for every numeric non-target column against the
// target column. Rows missing either value are dropped pairwise per driver;
// a driver with fewer than 2 valid pairs yields the neutral record
// {r: 0, p: 1} rather than failing the batch. Records are returned ascending
// by p_value.
func Correlate(t *table.Table, kpi string) ([]CorrelationRecord, error) {
	const stage = "correlation"
	if t == nil || t.NumRows() == 0 {
		return nil, envelope.Errorf(envelope.KindValue, stage, "table has no rows")
	}
	if !t.HasColumn(kpi) {
		return nil, envelope.Errorf(envelope.KindKey, stage, "target column %q not found", kpi)
	}
	target, ok := t.Numeric(kpi)
	if !ok {
		return nil, envelope.Errorf(envelope.KindType, stage, "target column %q is not numeric", kpi)
	}

	records := []CorrelationRecord{}
	for _, col := range t.NumericColumns() {
		if col == kpi {
			continue
		}
		driver, _ := t.Numeric(col)
		records = append(records, correlateDriver(col, driver, target))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PValue < records[j].PValue
	})
	return records, nil
}

// correlateDriver computes one driver's record over pairwise-complete rows.
func correlateDriver(name string, driver, target []float64) CorrelationRecord {
	xs, ys := completePairs(driver, target)
	if len(xs) < 2 {
		return CorrelationRecord{DriverName: name, Method: MethodPearson, R: 0, PValue: 1}
	}

	method := chooseMethod(xs, ys)
	var r float64
	if method == MethodSpearman {
		r = stat.Correlation(ranks(xs), ranks(ys), nil)
	} else {
		r = stat.Correlation(xs, ys, nil)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) {
		// Zero variance on either side; absorb as a neutral record.
		return CorrelationRecord{DriverName: name, Method: method, R: 0, PValue: 1}
	}
	r = clamp(r, -1, 1)
	return CorrelationRecord{DriverName: name, Method: method, R: r, PValue: pValue(r, len(xs))}
}

// chooseMethod selects Pearson only when both series are near-symmetric.
func chooseMethod(xs, ys []float64) string {
	sx, sy := stat.Skew(xs, nil), stat.Skew(ys, nil)
	if math.Abs(sx) < skewThreshold && math.Abs(sy) < skewThreshold {
		return MethodPearson
	}
	return MethodSpearman
}

// completePairs keeps only rows where both values are present.
func completePairs(xs, ys []float64) ([]float64, []float64) {
	var px, py []float64
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		px = append(px, xs[i])
		py = append(py, ys[i])
	}
	return px, py
}

// ranks returns 1-based ranks with ties averaged, the Spearman transform.
func ranks(xs []float64) []float64 {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	out := make([]float64, len(xs))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && xs[idx[j+1]] == xs[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg
		}
		i = j + 1
	}
	return out
}

// pValue is the two-sided significance of r under the Student's t
// distribution with n-2 degrees of freedom.
func pValue(r float64, n int) float64 {
	if n < 3 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clamp(2*dist.CDF(-math.Abs(t)), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
