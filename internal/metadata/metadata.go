// Package metadata loads the driver metadata catalog used to enrich ranked
// drivers with descriptions, units, and normal operating ranges.
package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/Feld1985/crossnection-mvp/internal/stats"
)

// DriverMeta is the catalog entry for one driver, keyed by base name.
type DriverMeta struct {
	Description string `json:"description" yaml:"description"`
	Unit        string `json:"unit" yaml:"unit"`
	NormalRange string `json:"normal_range" yaml:"normal_range"`
}

// Catalog maps base driver names to their metadata.
type Catalog struct {
	Drivers map[string]DriverMeta `json:"drivers" yaml:"drivers"`
}

// Empty returns a catalog with no entries.
func Empty() *Catalog {
	return &Catalog{Drivers: map[string]DriverMeta{}}
}

// LoadFromPath reads a catalog file (YAML or JSON). Format is detected by
// extension (.yaml/.yml → YAML, .json → JSON) or by content.
func LoadFromPath(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read driver metadata: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a catalog from bytes. ext is the format hint; empty = detect
// from content.
func Load(data []byte, ext string) (*Catalog, error) {
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

	var c Catalog
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse driver metadata json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse driver metadata yaml: %w", err)
		}
	}
	if c.Drivers == nil {
		c.Drivers = map[string]DriverMeta{}
	}
	return &c, nil
}

// LoadOrEmpty loads the catalog at path, degrading to an empty catalog (with
// a warning) when the file is missing or unreadable. Absence of metadata is
// never fatal to the analysis.
func LoadOrEmpty(path string, log *slog.Logger) *Catalog {
	if path == "" {
		return Empty()
	}
	c, err := LoadFromPath(path)
	if err != nil {
		if log != nil {
			log.Warn("driver metadata unavailable, enrichment disabled", "path", path, "error", err)
		}
		return Empty()
	}
	return c
}

// Lookup adapts the catalog to the ranker's enrichment hook.
func (c *Catalog) Lookup(baseName string) (stats.DriverInfo, bool) {
	m, ok := c.Drivers[baseName]
	if !ok {
		return stats.DriverInfo{}, false
	}
	return stats.DriverInfo{Description: m.Description, Unit: m.Unit, NormalRange: m.NormalRange}, true
}
