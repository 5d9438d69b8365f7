package render_test

import (
	"strings"
	"testing"

	"github.com/Feld1985/crossnection-mvp/internal/envelope"
	"github.com/Feld1985/crossnection-mvp/internal/render"
	"github.com/Feld1985/crossnection-mvp/internal/stats"
)

func sampleRanking() stats.RankingResult {
	return stats.RankingResult{
		KPIName: "First Pass Yield",
		Ranking: []stats.RankedDriver{
			{
				CorrelationRecord: stats.CorrelationRecord{
					DriverName: "value_temperature", Method: stats.MethodPearson, R: 0.82, PValue: 3.5e-5,
				},
				Score:       4.2,
				Strength:    stats.StrengthStrong,
				Explanation: "Strong positive correlation with statistical significance",
				Description: "Operating temperature",
			},
		},
	}
}

func TestRanking_ASCII(t *testing.T) {
	var buf strings.Builder
	render.Ranking(&buf, render.ASCII, sampleRanking())
	out := buf.String()
	for _, want := range []string{"First Pass Yield", "value_temperature", "Operating temperature", "Strong"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRanking_Markdown(t *testing.T) {
	var buf strings.Builder
	render.Ranking(&buf, render.Markdown, sampleRanking())
	if !strings.Contains(buf.String(), "|") {
		t.Errorf("markdown output has no table pipes:\n%s", buf.String())
	}
}

func TestRanking_Failed(t *testing.T) {
	res := stats.RankingResult{
		Envelope: envelope.Envelope{
			ErrorState:  true,
			UserMessage: "Key not found. Check that the column names are correct.",
			Suggestions: []string{"Check the logs"},
		},
		KPIName: "yield",
	}
	var buf strings.Builder
	render.Ranking(&buf, render.ASCII, res)
	out := buf.String()
	if !strings.Contains(out, "could not be completed") || !strings.Contains(out, "Key not found") {
		t.Errorf("failed ranking output:\n%s", out)
	}
	if !strings.Contains(out, "Check the logs") {
		t.Errorf("suggestions missing:\n%s", out)
	}
}

func TestOutliers_SummaryAndTable(t *testing.T) {
	res := stats.OutlierResult{
		KPI: "yield",
		Outliers: []stats.OutlierPoint{
			{Row: 12, Driver: "value_speed"},
		},
		Summary: "1 outlying data points were flagged across 1 driver(s): value_speed.",
	}
	var buf strings.Builder
	render.Outliers(&buf, render.ASCII, res)
	out := buf.String()
	if !strings.Contains(out, res.Summary) {
		t.Errorf("summary missing:\n%s", out)
	}
	if !strings.Contains(out, "value_speed") || !strings.Contains(out, "12") {
		t.Errorf("point missing:\n%s", out)
	}
}

func TestOutliers_None(t *testing.T) {
	res := stats.OutlierResult{KPI: "yield", Summary: "No significant outliers were detected."}
	var buf strings.Builder
	render.Outliers(&buf, render.ASCII, res)
	if !strings.Contains(buf.String(), "No significant outliers") {
		t.Errorf("output:\n%s", buf.String())
	}
}

func TestParseMode(t *testing.T) {
	if m, err := render.ParseMode("markdown"); err != nil || m != render.Markdown {
		t.Errorf("ParseMode(markdown) = %v, %v", m, err)
	}
	if m, err := render.ParseMode(""); err != nil || m != render.ASCII {
		t.Errorf("ParseMode(\"\") = %v, %v", m, err)
	}
	if _, err := render.ParseMode("xml"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
