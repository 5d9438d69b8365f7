// Package store is the versioned artifact store used to hand tabular and
// structured results between pipeline stages within one session.
//
// Layout: baseDir/sessionID/{name}.v{n}.{csv|json} plus one metadata.json
// registry per session, fully rewritten on every save. Versions per artifact
// name start at 1 and strictly increase; a save never mutates an existing
// version, so a returned version is immutable and safe for concurrent readers.
// Two concurrent saves under the same name must be serialized by the caller.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Feld1985/crossnection-mvp/internal/logging"
)

// Artifact types recorded in the registry.
const (
	TypeTable  = "table"
	TypeRecord = "record"
)

var (
	// ErrNotFound means no version of the requested artifact exists.
	ErrNotFound = errors.New("artifact not found")
	// ErrCorrupt means a stored artifact exists but cannot be parsed.
	ErrCorrupt = errors.New("artifact corrupt")
)

// Ref points at one saved artifact version. Path is relative to the base
// directory so it stays valid when the base is relocated.
type Ref struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

// artifactInfo is one registry entry.
type artifactInfo struct {
	Type      string   `json:"type"`
	Path      string   `json:"path"`
	Version   int      `json:"version"`
	CreatedAt string   `json:"created_at"`
	Rows      int      `json:"rows,omitempty"`
	Cols      int      `json:"cols,omitempty"`
	Columns   []string `json:"columns,omitempty"`
}

// registry is the per-session metadata document.
type registry struct {
	SessionID string                  `json:"session_id"`
	CreatedAt string                  `json:"created_at"`
	Artifacts map[string]artifactInfo `json:"artifacts"`
}

// Session scopes artifact versions to one pipeline run. Construct with Open
// and pass by reference to every component that persists results.
type Session struct {
	id      string
	baseDir string
	dir     string
	log     *slog.Logger

	mu  sync.Mutex // guards reg; saves of distinct names may run concurrently
	reg registry
}

// Open creates a new session under baseDir: a collision-resistant,
// time-derived session ID, the session directory, and an empty registry
// persisted immediately so a crash right after start leaves a valid session.
func Open(baseDir string) (*Session, error) {
	id := time.Now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString()[:8]
	dir := filepath.Join(baseDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	s := &Session{
		id:      id,
		baseDir: baseDir,
		dir:     dir,
		reg: registry{
			SessionID: id,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Artifacts: map[string]artifactInfo{},
		},
		log: logging.New("store"),
	}
	if err := s.writeRegistry(); err != nil {
		return nil, err
	}
	s.log.Info("session opened", "session_id", id, "base_dir", baseDir)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Dir returns the session directory.
func (s *Session) Dir() string { return s.dir }

// ListArtifacts returns the registered artifact names, sorted. A non-empty
// typeFilter ("table" or "record") restricts the result.
func (s *Session) ListArtifacts(typeFilter string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := []string{}
	for name, info := range s.reg.Artifacts {
		if typeFilter != "" && info.Type != typeFilter {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveArtifactName strips directory, version suffix, and extension from a
// stored reference path: "sess/impact_ranking.v3.json" → "impact_ranking".
func ResolveArtifactName(refPath string) string {
	if refPath == "" {
		return ""
	}
	base := filepath.Base(refPath)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	return base
}

// latestVersion scans the session dir for {name}.v{n}.{ext} files and returns
// the highest version, or 0 when none exist.
func (s *Session) latestVersion(name, ext string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, name+".v*."+ext))
	if err != nil {
		return 0, fmt.Errorf("scan versions for %q: %w", name, err)
	}
	max := 0
	for _, m := range matches {
		v, ok := parseVersion(filepath.Base(m), name, ext)
		if ok && v > max {
			max = v
		}
	}
	return max, nil
}

// parseVersion extracts n from "{name}.v{n}.{ext}".
func parseVersion(base, name, ext string) (int, bool) {
	rest, ok := strings.CutPrefix(base, name+".v")
	if !ok {
		return 0, false
	}
	numStr, ok := strings.CutSuffix(rest, "."+ext)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(numStr)
	if err != nil || v < 1 {
		return 0, false
	}
	return v, true
}

// resolveVersion maps the caller's version (0 = latest) to a concrete one.
func (s *Session) resolveVersion(name, ext string, version int) (int, error) {
	if version > 0 {
		return version, nil
	}
	latest, err := s.latestVersion(name, ext)
	if err != nil {
		return 0, err
	}
	if latest == 0 {
		return 0, fmt.Errorf("no versions of %q: %w", name, ErrNotFound)
	}
	return latest, nil
}

// nextVersion returns the version a new save should use (0 = auto).
func (s *Session) nextVersion(name, ext string, version int) (int, error) {
	if version > 0 {
		return version, nil
	}
	latest, err := s.latestVersion(name, ext)
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

// register records an artifact save and rewrites the whole registry document.
func (s *Session) register(name string, info artifactInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	info.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	s.reg.Artifacts[name] = info
	return s.writeRegistry()
}

// relPath returns a session-file path relative to the base dir.
func (s *Session) relPath(filename string) string {
	return filepath.Join(s.id, filename)
}
