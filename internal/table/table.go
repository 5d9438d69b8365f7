// Package table holds the in-memory tabular dataset passed between the
// artifact store and the statistical engine. Cells are kept as raw strings;
// numeric views are derived on demand with NaN marking missing values.
package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is a rows × named-columns dataset. Rows all have len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given column names.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// FromNumeric builds a table from parallel float columns. NaN cells become
// empty (missing). All columns must have equal length.
func FromNumeric(names []string, cols ...[]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("table: %d names for %d columns", len(names), len(cols))
	}
	t := New(names...)
	if len(cols) == 0 {
		return t, nil
	}
	n := len(cols[0])
	for i, c := range cols {
		if len(c) != n {
			return nil, fmt.Errorf("table: column %q has %d values, want %d", names[i], len(c), n)
		}
	}
	for row := 0; row < n; row++ {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if math.IsNaN(c[row]) {
				cells[i] = ""
			} else {
				cells[i] = strconv.FormatFloat(c[row], 'g', -1, 64)
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, nil
}

// AppendRow adds one row. The cell count must match the column count.
func (t *Table) AppendRow(cells ...string) error {
	if len(cells) != len(t.Columns) {
		return fmt.Errorf("table: row has %d cells, want %d", len(cells), len(t.Columns))
	}
	t.Rows = append(t.Rows, append([]string(nil), cells...))
	return nil
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.Columns) }

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// IsMissing reports whether a raw cell counts as a missing value.
func IsMissing(cell string) bool {
	switch strings.ToLower(strings.TrimSpace(cell)) {
	case "", "nan", "na", "null":
		return true
	}
	return false
}

// Numeric returns the named column as floats, NaN for missing cells.
// ok is false when the column is absent, has a non-numeric cell, or holds
// no non-missing values at all.
func (t *Table) Numeric(name string) (vals []float64, ok bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	vals = make([]float64, len(t.Rows))
	seen := false
	for i, row := range t.Rows {
		cell := row[idx]
		if IsMissing(cell) {
			vals[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
		if err != nil {
			return nil, false
		}
		vals[i] = f
		seen = true
	}
	if !seen {
		return nil, false
	}
	return vals, true
}

// NumericColumns returns the names of all numeric columns in table order.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.Columns {
		if _, ok := t.Numeric(c); ok {
			names = append(names, c)
		}
	}
	return names
}
