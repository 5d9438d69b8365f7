// Package pipeline wires the statistical stages in the expected usage
// pattern: correlation and outlier detection run as independent concurrent
// branches, ranking follows completed correlation output, and every result
// (or its envelope-wrapped fallback) is persisted through the artifact store
// under its canonical name.
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Feld1985/crossnection-mvp/internal/envelope"
	"github.com/Feld1985/crossnection-mvp/internal/logging"
	"github.com/Feld1985/crossnection-mvp/internal/stats"
	"github.com/Feld1985/crossnection-mvp/internal/store"
	"github.com/Feld1985/crossnection-mvp/internal/table"
)

// Canonical artifact names. Failed stages persist their envelope-wrapped
// empty result under the same name a success would use, so downstream
// consumers check error_state rather than crash on a missing artifact.
const (
	ArtifactDataset     = "unified_dataset"
	ArtifactCorrelation = "correlation_matrix"
	ArtifactRanking     = "impact_ranking"
	ArtifactOutliers    = "outlier_report"
)

// Options tunes one pipeline run.
type Options struct {
	TopK   int                  // ranking truncation, 0 = all
	Lookup stats.MetadataLookup // enrichment hook, nil = no enrichment
}

// Result bundles the three persisted analysis results.
type Result struct {
	Correlation stats.CorrelationResult
	Ranking     stats.RankingResult
	Outliers    stats.OutlierResult
}

// Run executes one analysis over an already-resolved table. Statistical
// failures degrade to envelope-wrapped empty results; only storage failures
// abort the run.
func Run(ctx context.Context, sess *store.Session, t *table.Table, kpi string, opts Options) (*Result, error) {
	log := logging.New("pipeline")

	if _, err := sess.SaveTable(ArtifactDataset, t, 0); err != nil {
		return nil, fmt.Errorf("persist dataset: %w", err)
	}

	res := &Result{}
	g, ctx := errgroup.WithContext(ctx)

	// The two branches are mutually independent and write distinct artifact
	// names, so they may run concurrently without coordination.
	g.Go(func() error {
		res.Correlation = correlate(t, kpi)
		ref, err := sess.SaveRecord(ArtifactCorrelation, res.Correlation, 0)
		if err != nil {
			return fmt.Errorf("persist correlation: %w", err)
		}
		log.Info("correlation complete", "drivers", len(res.Correlation.Drivers),
			"failed", res.Correlation.Failed(), "ref", ref.Path)
		return ctx.Err()
	})
	g.Go(func() error {
		res.Outliers = detectOutliers(t, kpi)
		ref, err := sess.SaveRecord(ArtifactOutliers, res.Outliers, 0)
		if err != nil {
			return fmt.Errorf("persist outlier report: %w", err)
		}
		log.Info("outlier detection complete", "outliers", len(res.Outliers.Outliers),
			"failed", res.Outliers.Failed(), "ref", ref.Path)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ranking strictly depends on completed correlation output.
	res.Ranking = rank(res.Correlation, kpi, opts)
	ref, err := sess.SaveRecord(ArtifactRanking, res.Ranking, 0)
	if err != nil {
		return nil, fmt.Errorf("persist ranking: %w", err)
	}
	log.Info("ranking complete", "ranked", len(res.Ranking.Ranking),
		"failed", res.Ranking.Failed(), "ref", ref.Path)

	return res, nil
}

// correlate runs the correlation stage behind the envelope boundary.
func correlate(t *table.Table, kpi string) stats.CorrelationResult {
	res := stats.CorrelationResult{Drivers: []stats.CorrelationRecord{}}
	err := envelope.Capture("correlation", func() error {
		records, err := stats.Correlate(t, kpi)
		if err != nil {
			return err
		}
		res.Drivers = records
		return nil
	})
	if err != nil {
		res.Envelope = envelope.FromError("correlation", err)
	}
	return res
}

// detectOutliers runs the outlier stage behind the envelope boundary.
func detectOutliers(t *table.Table, kpi string) stats.OutlierResult {
	res := stats.OutlierResult{KPI: kpi, Outliers: []stats.OutlierPoint{}}
	err := envelope.Capture("outliers", func() error {
		out, err := stats.DetectOutliers(t, kpi)
		if err != nil {
			return err
		}
		res = out
		return nil
	})
	if err != nil {
		res.Envelope = envelope.FromError("outliers", err)
		res.Summary = stats.Summarize(nil)
	}
	return res
}

// rank runs the ranking stage behind the envelope boundary. When the
// correlation stage failed, its envelope is carried onto the (empty) ranking
// so the failure stays visible downstream.
func rank(corr stats.CorrelationResult, kpi string, opts Options) stats.RankingResult {
	res := stats.RankingResult{KPIName: kpi, Ranking: []stats.RankedDriver{}}
	if corr.Failed() {
		res.Envelope = corr.Envelope
		return res
	}
	err := envelope.Capture("ranking", func() error {
		res.Ranking = stats.Rank(corr.Drivers, opts.TopK, opts.Lookup)
		return nil
	})
	if err != nil {
		res.Ranking = []stats.RankedDriver{}
		res.Envelope = envelope.FromError("ranking", err)
	}
	return res
}
