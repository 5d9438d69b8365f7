// Package render prints analysis results as terminal or Markdown tables.
// Narrative generation stays external; this only lays out the computed
// fields for a human to inspect.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Feld1985/crossnection-mvp/internal/stats"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps a CLI flag value to a Mode.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "ascii", "":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	default:
		return ASCII, fmt.Errorf("unknown output format %q", name)
	}
}

// Ranking writes the impact ranking as a table, or the envelope's user
// message when the stage failed.
func Ranking(w io.Writer, mode Mode, res stats.RankingResult) {
	fmt.Fprintf(w, "Impact ranking for %s\n", res.KPIName)
	if res.Failed() {
		writeEnvelope(w, res.UserMessage, res.Suggestions)
		return
	}

	tw := newWriter(mode)
	tw.AppendHeader(table.Row{"#", "Driver", "Method", "r", "p-value", "Score", "Strength", "Explanation"})
	for i, d := range res.Ranking {
		name := d.DriverName
		if d.Description != "" {
			name = fmt.Sprintf("%s (%s)", d.DriverName, d.Description)
		}
		tw.AppendRow(table.Row{
			i + 1, name, d.Method,
			formatFloat(d.R), formatFloat(d.PValue), formatFloat(d.Score),
			d.Strength, d.Explanation,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	fmt.Fprintln(w, renderTable(tw, mode))
}

// Outliers writes the outlier report summary and flagged points.
func Outliers(w io.Writer, mode Mode, res stats.OutlierResult) {
	if res.Failed() {
		writeEnvelope(w, res.UserMessage, res.Suggestions)
		return
	}
	fmt.Fprintln(w, res.Summary)
	if len(res.Outliers) == 0 {
		return
	}

	tw := newWriter(mode)
	tw.AppendHeader(table.Row{"Row", "Driver"})
	for _, p := range res.Outliers {
		tw.AppendRow(table.Row{p.Row, p.Driver})
	}
	fmt.Fprintln(w, renderTable(tw, mode))
}

func newWriter(mode Mode) table.Writer {
	tw := table.NewWriter()
	if mode == ASCII {
		tw.SetStyle(table.StyleLight)
	}
	return tw
}

func renderTable(tw table.Writer, mode Mode) string {
	if mode == Markdown {
		return tw.RenderMarkdown()
	}
	return tw.Render()
}

func writeEnvelope(w io.Writer, userMessage string, suggestions []string) {
	fmt.Fprintf(w, "Analysis could not be completed: %s\n", userMessage)
	for _, s := range suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
