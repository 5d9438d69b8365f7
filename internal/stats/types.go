// Package stats implements the statistical core of the root-cause analysis:
// per-driver correlation against the target KPI, composite impact ranking,
// and dual-criterion outlier detection.
package stats

import "github.com/Feld1985/crossnection-mvp/internal/envelope"

// Correlation methods. Selection is per driver: Pearson when both series are
// near-symmetric (|skewness| < 1), Spearman otherwise.
const (
	MethodPearson  = "pearson"
	MethodSpearman = "spearman"
)

// Strength classes for a ranked driver.
const (
	StrengthStrong   = "Strong"
	StrengthModerate = "Moderate"
	StrengthWeak     = "Weak"
)

// CorrelationRecord is one driver's correlation against the KPI.
// r is always within [-1,1] and p_value within [0,1].
type CorrelationRecord struct {
	DriverName string  `json:"driver_name"`
	Method     string  `json:"method"`
	R          float64 `json:"r"`
	PValue     float64 `json:"p_value"`
}

// CorrelationResult is the persisted correlation artifact: the per-driver
// records on success, an envelope over an empty list on failure.
type CorrelationResult struct {
	envelope.Envelope
	Drivers []CorrelationRecord `json:"drivers"`
}

// RankedDriver is one entry of the impact ranking: the correlation record
// plus the composite score, strength class, explanation text, and optional
// metadata enrichment.
type RankedDriver struct {
	CorrelationRecord
	Score       float64 `json:"score"`
	Strength    string  `json:"strength"`
	Explanation string  `json:"explanation"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"unit,omitempty"`
	NormalRange string  `json:"normal_range,omitempty"`
}

// RankingResult is the persisted impact-ranking artifact.
type RankingResult struct {
	envelope.Envelope
	KPIName string         `json:"kpi_name"`
	Ranking []RankedDriver `json:"ranking"`
}

// OutlierPoint flags one anomalous cell: row index into the source table and
// the driver column it belongs to.
type OutlierPoint struct {
	Row    int    `json:"row"`
	Driver string `json:"driver"`
}

// OutlierResult is the persisted outlier-report artifact.
type OutlierResult struct {
	envelope.Envelope
	KPI      string         `json:"kpi"`
	Outliers []OutlierPoint `json:"outliers"`
	Summary  string         `json:"summary"`
}

// DriverInfo is the metadata enrichment attached to a ranked driver when the
// catalog knows the driver. Lookup is keyed by base name (any "value_" prefix
// stripped); absence is not an error.
type DriverInfo struct {
	Description string
	Unit        string
	NormalRange string
}

// MetadataLookup resolves enrichment for a base driver name. A nil lookup
// disables enrichment.
type MetadataLookup func(baseName string) (DriverInfo, bool)
