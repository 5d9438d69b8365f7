package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Feld1985/crossnection-mvp/internal/logging"
	"github.com/Feld1985/crossnection-mvp/internal/metadata"
	"github.com/Feld1985/crossnection-mvp/internal/pipeline"
	"github.com/Feld1985/crossnection-mvp/internal/render"
	"github.com/Feld1985/crossnection-mvp/internal/stats"
	"github.com/Feld1985/crossnection-mvp/internal/store"
	"github.com/Feld1985/crossnection-mvp/internal/study"
	"github.com/Feld1985/crossnection-mvp/internal/table"
)

var analyzeFlags struct {
	study    string
	csv      string
	kpi      string
	topK     int
	meta     string
	baseDir  string
	format   string
	logLevel string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run correlation, ranking, and outlier analysis on a dataset",
	Long: "Analyze loads a CSV dataset (one KPI column plus driver columns),\n" +
		"computes per-driver correlations, ranks drivers by composite impact\n" +
		"score, flags outlying data points, and persists every result in a\n" +
		"session-scoped artifact store.",
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.study, "study", "", "study file (YAML/JSON) describing the run")
	f.StringVar(&analyzeFlags.csv, "csv", "", "dataset CSV (alternative to --study)")
	f.StringVar(&analyzeFlags.kpi, "kpi", "", "target KPI column name")
	f.IntVar(&analyzeFlags.topK, "top-k", 0, "keep only the top K ranked drivers (0 = all)")
	f.StringVar(&analyzeFlags.meta, "metadata", "", "driver metadata file (JSON/YAML)")
	f.StringVar(&analyzeFlags.baseDir, "base-dir", "flow_context", "artifact store base directory")
	f.StringVar(&analyzeFlags.format, "format", "ascii", "output format: ascii or markdown")
	f.StringVar(&analyzeFlags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	level, err := logging.ParseLevel(analyzeFlags.logLevel)
	if err != nil {
		return err
	}
	logging.Init(level, "text")
	log := logging.New("analyze")

	run, err := resolveRun()
	if err != nil {
		return err
	}
	mode, err := render.ParseMode(analyzeFlags.format)
	if err != nil {
		return err
	}

	f, err := os.Open(run.Dataset)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	tbl, err := table.FromCSV(f)
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	log.Info("dataset loaded", "path", run.Dataset, "rows", tbl.NumRows(), "cols", tbl.NumCols())

	sess, err := store.Open(analyzeFlags.baseDir)
	if err != nil {
		return err
	}

	catalog := metadata.LoadOrEmpty(run.Metadata, log)
	var lookup stats.MetadataLookup
	if len(catalog.Drivers) > 0 {
		lookup = catalog.Lookup
	}

	res, err := pipeline.Run(cmd.Context(), sess, tbl, run.KPI, pipeline.Options{
		TopK:   run.TopK,
		Lookup: lookup,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	render.Ranking(out, mode, res.Ranking)
	fmt.Fprintln(out)
	render.Outliers(out, mode, res.Outliers)
	fmt.Fprintf(out, "\nSession %s: artifacts in %s\n", sess.ID(), sess.Dir())
	return nil
}

// resolveRun merges the study file (when given) with direct flags; direct
// flags win so a study can be partially overridden.
func resolveRun() (*study.Study, error) {
	run := &study.Study{
		Dataset:  analyzeFlags.csv,
		KPI:      analyzeFlags.kpi,
		TopK:     analyzeFlags.topK,
		Metadata: analyzeFlags.meta,
	}
	if analyzeFlags.study != "" {
		s, err := study.LoadFromPath(analyzeFlags.study)
		if err != nil {
			return nil, err
		}
		if run.Dataset == "" {
			run.Dataset = s.Dataset
		}
		if run.KPI == "" {
			run.KPI = s.KPI
		}
		if run.TopK == 0 {
			run.TopK = s.TopK
		}
		if run.Metadata == "" {
			run.Metadata = s.Metadata
		}
	}
	if err := run.Validate(); err != nil {
		return nil, fmt.Errorf("%w (set --study or --csv and --kpi)", err)
	}
	return run, nil
}
