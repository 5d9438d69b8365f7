package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Feld1985/crossnection-mvp/internal/table"
)

func testTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.FromNumeric([]string{"kpi", "speed"}, []float64{1, 2, 3}, []float64{10, 20, 30})
	if err != nil {
		t.Fatalf("FromNumeric: %v", err)
	}
	return tbl
}

func TestOpen_CreatesSessionAndRegistry(t *testing.T) {
	base := filepath.Join(t.TempDir(), "missing", "nested")
	s, err := Open(base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.ID() == "" {
		t.Fatal("empty session ID")
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "metadata.json"))
	if err != nil {
		t.Fatalf("registry not persisted at open: %v", err)
	}
	var reg map[string]any
	if err := json.Unmarshal(data, &reg); err != nil {
		t.Fatalf("registry not valid JSON: %v", err)
	}
	if reg["session_id"] != s.ID() {
		t.Errorf("registry session_id = %v, want %s", reg["session_id"], s.ID())
	}
	arts, ok := reg["artifacts"].(map[string]any)
	if !ok || len(arts) != 0 {
		t.Errorf("expected empty artifacts map, got %v", reg["artifacts"])
	}
}

func TestOpen_DistinctSessions(t *testing.T) {
	base := t.TempDir()
	a, err := Open(base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := Open(base)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.ID() == b.ID() {
		t.Fatalf("two sessions share ID %s", a.ID())
	}
}

func TestSaveTable_VersionMonotonicity(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tbl := testTable(t)

	for want := 1; want <= 3; want++ {
		ref, err := s.SaveTable("unified_dataset", tbl, 0)
		if err != nil {
			t.Fatalf("SaveTable #%d: %v", want, err)
		}
		if ref.Version != want {
			t.Fatalf("SaveTable #%d version = %d, want %d", want, ref.Version, want)
		}
	}

	// Latest always resolves to the newest save even with identical content.
	got, err := s.LoadTable("unified_dataset", 0)
	if err != nil {
		t.Fatalf("LoadTable latest: %v", err)
	}
	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Errorf("latest content mismatch:\n%s", diff)
	}
}

func TestTable_RoundTrip(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tbl := testTable(t)

	ref, err := s.SaveTable("unified_dataset", tbl, 0)
	if err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	got, err := s.LoadTable("unified_dataset", ref.Version)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if diff := cmp.Diff(tbl, got); diff != "" {
		t.Errorf("round trip mismatch:\n%s", diff)
	}
}

func TestLoadTable_NotFound(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.LoadTable("nope", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadTable latest of absent name: %v, want ErrNotFound", err)
	}
	if _, err := s.LoadTable("nope", 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LoadTable absent version: %v, want ErrNotFound", err)
	}
}

func TestLoadTable_Corrupt(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	path := filepath.Join(s.Dir(), "broken.v1.csv")
	if err := os.WriteFile(path, []byte("a,b\n1\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := s.LoadTable("broken", 1); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("LoadTable of unparsable file: %v, want ErrCorrupt", err)
	}
}

func TestLoadTable_DereferencesStaleReference(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	real := testTable(t)
	ref, err := s.SaveTable("real_data", real, 0)
	if err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	// A one-column, one-value table holding a path must be dereferenced.
	ptr := table.New("data")
	if err := ptr.AppendRow(filepath.Join(s.Dir(), filepath.Base(ref.Path))); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if _, err := s.SaveTable("pointer", ptr, 0); err != nil {
		t.Fatalf("SaveTable pointer: %v", err)
	}

	got, err := s.LoadTable("pointer", 0)
	if err != nil {
		t.Fatalf("LoadTable pointer: %v", err)
	}
	if diff := cmp.Diff(real, got); diff != "" {
		t.Errorf("dereferenced table mismatch:\n%s", diff)
	}
}

func TestLoadTable_DanglingReference(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ptr := table.New("data")
	if err := ptr.AppendRow("/no/such/dir/gone.csv"); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if _, err := s.SaveTable("pointer", ptr, 0); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	if _, err := s.LoadTable("pointer", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("dangling reference: %v, want ErrNotFound", err)
	}
}

func TestRecord_RoundTripAndVersions(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	doc := map[string]any{"kpi_name": "yield", "ranking": []any{}}

	ref1, err := s.SaveRecord("impact_ranking", doc, 0)
	if err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	ref2, err := s.SaveRecord("impact_ranking", doc, 0)
	if err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}
	if ref1.Version != 1 || ref2.Version != 2 {
		t.Fatalf("versions = %d,%d, want 1,2", ref1.Version, ref2.Version)
	}

	var got map[string]any
	if err := s.LoadRecord("impact_ranking", 0, &got); err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("record mismatch:\n%s", diff)
	}
}

func TestLoadRecord_Errors(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	var out map[string]any
	if err := s.LoadRecord("missing", 0, &out); !errors.Is(err, ErrNotFound) {
		t.Fatalf("absent record: %v, want ErrNotFound", err)
	}

	path := filepath.Join(s.Dir(), "bad.v1.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := s.LoadRecord("bad", 1, &out); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("unparsable record: %v, want ErrCorrupt", err)
	}
}

func TestListArtifacts(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.SaveTable("unified_dataset", testTable(t), 0); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	if _, err := s.SaveRecord("impact_ranking", map[string]any{}, 0); err != nil {
		t.Fatalf("SaveRecord: %v", err)
	}

	if diff := cmp.Diff([]string{"impact_ranking", "unified_dataset"}, s.ListArtifacts("")); diff != "" {
		t.Errorf("all artifacts:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"unified_dataset"}, s.ListArtifacts(TypeTable)); diff != "" {
		t.Errorf("table artifacts:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"impact_ranking"}, s.ListArtifacts(TypeRecord)); diff != "" {
		t.Errorf("record artifacts:\n%s", diff)
	}
}

func TestRegistry_RewrittenOnSave(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.SaveTable("unified_dataset", testTable(t), 0); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}
	if _, err := s.SaveTable("unified_dataset", testTable(t), 0); err != nil {
		t.Fatalf("SaveTable: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(s.Dir(), "metadata.json"))
	if err != nil {
		t.Fatalf("read registry: %v", err)
	}
	var reg struct {
		Artifacts map[string]struct {
			Type    string   `json:"type"`
			Version int      `json:"version"`
			Rows    int      `json:"rows"`
			Columns []string `json:"columns"`
		} `json:"artifacts"`
	}
	if err := json.Unmarshal(data, &reg); err != nil {
		t.Fatalf("parse registry: %v", err)
	}
	info, ok := reg.Artifacts["unified_dataset"]
	if !ok {
		t.Fatal("unified_dataset missing from registry")
	}
	if info.Type != TypeTable || info.Version != 2 || info.Rows != 3 {
		t.Errorf("registry entry = %+v, want table v2 with 3 rows", info)
	}
	if diff := cmp.Diff([]string{"kpi", "speed"}, info.Columns); diff != "" {
		t.Errorf("registry columns:\n%s", diff)
	}
}

func TestResolveArtifactName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"20250101T000000Z-abc/impact_ranking.v3.json", "impact_ranking"},
		{"unified_dataset.v12.csv", "unified_dataset"},
		{"data_report", "data_report"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ResolveArtifactName(c.in); got != c.want {
			t.Errorf("ResolveArtifactName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
