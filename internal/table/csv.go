package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// FromCSV parses a header-first CSV stream into a Table.
func FromCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("parse csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv header: %w", err)
	}
	t := New(header...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv row %d: %w", t.NumRows()+1, err)
		}
		if err := t.AppendRow(rec...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WriteCSV serializes the table as a header-first CSV stream.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
