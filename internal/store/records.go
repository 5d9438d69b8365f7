package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveRecord persists a structured (non-tabular) artifact as JSON, with the
// same versioning semantics as SaveTable.
func (s *Session) SaveRecord(name string, v any, version int) (Ref, error) {
	ver, err := s.nextVersion(name, "json", version)
	if err != nil {
		return Ref{}, err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return Ref{}, fmt.Errorf("encode record %q: %w", name, err)
	}
	filename := fmt.Sprintf("%s.v%d.json", name, ver)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0644); err != nil {
		return Ref{}, fmt.Errorf("write record %q: %w", name, err)
	}
	rel := s.relPath(filename)
	if err := s.register(name, artifactInfo{Type: TypeRecord, Path: rel, Version: ver}); err != nil {
		return Ref{}, err
	}
	s.log.Debug("record saved", "name", name, "version", ver)
	return Ref{Path: rel, Version: ver}, nil
}

// LoadRecord loads a structured artifact into out. version 0 resolves to the
// latest save. Returns ErrNotFound when no version exists and ErrCorrupt when
// the stored file is not valid JSON.
func (s *Session) LoadRecord(name string, version int, out any) error {
	v, err := s.resolveVersion(name, "json", version)
	if err != nil {
		return err
	}
	path := filepath.Join(s.dir, fmt.Sprintf("%s.v%d.json", name, v))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("record %q version %d: %w", name, v, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read record %q: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("record %q: %v: %w", name, err, ErrCorrupt)
	}
	return nil
}

// writeRegistry rewrites the whole metadata document for the session.
func (s *Session) writeRegistry() error {
	data, err := json.MarshalIndent(s.reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, "metadata.json"), data, 0644); err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}
