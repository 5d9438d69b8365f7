package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Feld1985/crossnection-mvp/internal/table"
)

// SaveTable persists a table artifact as CSV. version 0 assigns the next
// version for name (1 when none exist). Saving identical content twice still
// produces two distinct versions.
func (s *Session) SaveTable(name string, t *table.Table, version int) (Ref, error) {
	v, err := s.nextVersion(name, "csv", version)
	if err != nil {
		return Ref{}, err
	}
	filename := fmt.Sprintf("%s.v%d.csv", name, v)

	var buf strings.Builder
	if err := t.WriteCSV(&buf); err != nil {
		return Ref{}, fmt.Errorf("encode table %q: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, filename), []byte(buf.String()), 0644); err != nil {
		return Ref{}, fmt.Errorf("write table %q: %w", name, err)
	}

	rel := s.relPath(filename)
	err = s.register(name, artifactInfo{
		Type:    TypeTable,
		Path:    rel,
		Version: v,
		Rows:    t.NumRows(),
		Cols:    t.NumCols(),
		Columns: append([]string(nil), t.Columns...),
	})
	if err != nil {
		return Ref{}, err
	}
	s.log.Debug("table saved", "name", name, "version", v, "rows", t.NumRows(), "cols", t.NumCols())
	return Ref{Path: rel, Version: v}, nil
}

// LoadTable loads a table artifact. version 0 resolves to the latest save.
// Returns ErrNotFound when no version exists and ErrCorrupt when the stored
// file cannot be parsed.
//
// Defensive rule: a loaded table with exactly one column whose sole value
// looks like a path to another table file is treated as a stale
// cross-reference; the referenced file is loaded in its place.
func (s *Session) LoadTable(name string, version int) (*table.Table, error) {
	v, err := s.resolveVersion(name, "csv", version)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s.v%d.csv", name, v))
	t, err := s.readTableFile(name, path)
	if err != nil {
		return nil, err
	}

	if t.NumCols() == 1 && t.NumRows() == 1 {
		if ref := t.Rows[0][0]; looksLikeTablePath(ref) {
			s.log.Warn("table artifact holds a file reference, dereferencing", "name", name, "ref", ref)
			return s.loadReferencedTable(name, ref)
		}
	}
	return t, nil
}

// readTableFile reads and parses one stored CSV file.
func (s *Session) readTableFile(name, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("table %q at %s: %w", name, path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open table %q: %w", name, err)
	}
	defer f.Close()
	t, err := table.FromCSV(f)
	if err != nil {
		return nil, fmt.Errorf("table %q: %v: %w", name, err, ErrCorrupt)
	}
	return t, nil
}

// loadReferencedTable resolves a cross-reference cell, trying the path as-is
// and then relative to the session dir. A dangling reference is ErrNotFound.
func (s *Session) loadReferencedTable(name, ref string) (*table.Table, error) {
	for _, path := range []string{ref, filepath.Join(s.dir, filepath.Base(ref))} {
		if _, err := os.Stat(path); err == nil {
			return s.readTableFile(name, path)
		}
	}
	return nil, fmt.Errorf("table %q references missing file %s: %w", name, ref, ErrNotFound)
}

// looksLikeTablePath reports whether a cell value reads as a table-file path
// rather than data.
func looksLikeTablePath(v string) bool {
	return strings.ContainsAny(v, `/\`) || strings.HasSuffix(v, ".csv")
}
