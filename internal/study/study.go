// Package study loads the study file describing one analysis run: the
// dataset to analyze, the target KPI column, and optional ranking settings.
package study

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Study describes one root-cause analysis run.
type Study struct {
	Dataset  string `json:"dataset" yaml:"dataset"`   // CSV file with drivers + KPI column
	KPI      string `json:"kpi" yaml:"kpi"`           // target column name
	TopK     int    `json:"top_k" yaml:"top_k"`       // ranking truncation, 0 = all
	Metadata string `json:"metadata" yaml:"metadata"` // driver metadata file, optional
}

// LoadFromPath reads a study file (YAML or JSON). Format is detected by
// extension or by content (first non-whitespace char).
func LoadFromPath(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read study: %w", err)
	}
	s, err := Load(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	// Relative paths in the study resolve against its own directory.
	dir := filepath.Dir(path)
	if s.Dataset != "" && !filepath.IsAbs(s.Dataset) {
		s.Dataset = filepath.Join(dir, s.Dataset)
	}
	if s.Metadata != "" && !filepath.IsAbs(s.Metadata) {
		s.Metadata = filepath.Join(dir, s.Metadata)
	}
	return s, nil
}

// Load parses a study from bytes. ext is the file extension for format hint;
// empty = detect from content.
func Load(data []byte, ext string) (*Study, error) {
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	var s Study
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse study json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parse study yaml: %w", err)
		}
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the required fields.
func (s *Study) Validate() error {
	if s.Dataset == "" {
		return fmt.Errorf("study: dataset is required")
	}
	if s.KPI == "" {
		return fmt.Errorf("study: kpi is required")
	}
	if s.TopK < 0 {
		return fmt.Errorf("study: top_k must be >= 0")
	}
	return nil
}
