package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/Feld1985/crossnection-mvp/internal/envelope"
	"github.com/Feld1985/crossnection-mvp/internal/table"
)

// Outlier rule constants.
const (
	zScoreThreshold = 3.0
	iqrMultiplier   = 1.5
)

// DetectOutliers flags anomalous (row, driver) pairs per numeric non-target
// column, as the union of the Z-score rule (|z| > 3, population σ) and the
// Tukey IQR rule (outside Q1/Q3 ± 1.5×IQR). A point tripping both rules is
// reported once. Columns with fewer than 2 non-missing values are skipped.
func DetectOutliers(t *table.Table, kpi string) (OutlierResult, error) {
	const stage = "outliers"
	if t == nil || t.NumRows() == 0 {
		return OutlierResult{}, envelope.Errorf(envelope.KindValue, stage, "table has no rows")
	}

	points := []OutlierPoint{}
	for _, col := range t.NumericColumns() {
		if col == kpi {
			continue
		}
		vals, _ := t.Numeric(col)
		for _, row := range columnOutliers(vals) {
			points = append(points, OutlierPoint{Row: row, Driver: col})
		}
	}
	return OutlierResult{KPI: kpi, Outliers: points, Summary: Summarize(points)}, nil
}

// columnOutliers returns the sorted row indices flagged by either rule.
func columnOutliers(vals []float64) []int {
	var present []float64
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return nil
	}

	mean := stat.Mean(present, nil)
	// Population σ, the z-score convention the tuning was done against.
	sigma := math.Sqrt(stat.MomentAbout(2, present, mean, nil))

	sorted := append([]float64(nil), present...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	lower, upper := q1-iqrMultiplier*iqr, q3+iqrMultiplier*iqr

	var rows []int
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		zFlag := sigma > 0 && math.Abs(v-mean)/sigma > zScoreThreshold
		iqrFlag := v < lower || v > upper
		if zFlag || iqrFlag {
			rows = append(rows, i)
		}
	}
	return rows
}

// Summarize renders the one-line outlier report summary.
func Summarize(points []OutlierPoint) string {
	if len(points) == 0 {
		return "No significant outliers were detected."
	}
	seen := map[string]bool{}
	for _, p := range points {
		seen[p.Driver] = true
	}
	drivers := make([]string, 0, len(seen))
	for d := range seen {
		drivers = append(drivers, d)
	}
	sort.Strings(drivers)
	return fmt.Sprintf("%d outlying data points were flagged across %d driver(s): %s.",
		len(points), len(drivers), strings.Join(drivers, ", "))
}
