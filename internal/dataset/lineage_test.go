package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

func obsAt(t *testing.T, date, file string) model.Observation {
	t.Helper()
	ts, err := time.Parse(model.DateLayout, date)
	if err != nil {
		t.Fatalf("bad test date %q: %v", date, err)
	}
	return model.Observation{
		FirstMeasurementTime: ts,
		LastMeasurementTime:  ts.Add(time.Second),
		Date:                 date,
		SourceFile:           file,
	}
}

func TestBuildLineage(t *testing.T) {
	observations := []model.Observation{
		obsAt(t, "2024-01-01", "B.zip"),
		obsAt(t, "2024-01-01", "A.zip"),
		obsAt(t, "2024-01-01", "A.zip"),
		obsAt(t, "2024-01-02", "C.zip"),
	}

	lineage := BuildLineage(observations)

	want := Lineage{
		"2024-01-01": {"A.zip", "B.zip"},
		"2024-01-02": {"C.zip"},
	}
	if !lineage.Equal(want) {
		t.Fatalf("lineage = %v, want %v", lineage, want)
	}
}

func TestLineageFromFilenames(t *testing.T) {
	names := []string{
		"S1A_IW_OCN__2SDV_20201101T063353_scene.zip",
		"S1B_IW_OCN__2SDV_20201101T181210_scene.zip",
		"S1A_IW_OCN__2SDV_20201102T063353_scene.zip",
		"no-date-here.zip",
	}

	lineage := LineageFromFilenames(names)

	if got := len(lineage["2020-11-01"]); got != 2 {
		t.Errorf("2020-11-01 has %d files, want 2", got)
	}
	if got := len(lineage["2020-11-02"]); got != 1 {
		t.Errorf("2020-11-02 has %d files, want 1", got)
	}
	if len(lineage) != 2 {
		t.Errorf("lineage has %d dates, want 2", len(lineage))
	}
}

func TestLineageFromFilenamesRejectsAdjacentDigits(t *testing.T) {
	// A 9-digit run must not be read as an 8-digit date.
	lineage := LineageFromFilenames([]string{"scene_202011015.zip"})
	if lineage != nil {
		t.Fatalf("expected no lineage, got %v", lineage)
	}
}

func TestLineageFromFilenamesNothingParses(t *testing.T) {
	if lineage := LineageFromFilenames([]string{"a.zip", "b.zip"}); lineage != nil {
		t.Fatalf("expected nil lineage, got %v", lineage)
	}
}

func TestLineageWriteLoadRemove(t *testing.T) {
	root := t.TempDir()
	lineage := Lineage{"2024-01-01": {"A.zip", "B.zip"}}

	if err := lineage.Write(root); err != nil {
		t.Fatalf("write: %v", err)
	}

	// On-disk shape is a plain JSON object keyed by date.
	raw, err := os.ReadFile(filepath.Join(root, LineageFile))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var decoded map[string][]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(decoded["2024-01-01"], []string{"A.zip", "B.zip"}) {
		t.Errorf("decoded = %v", decoded)
	}

	loaded, err := LoadLineage(root)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Equal(lineage) {
		t.Errorf("loaded = %v, want %v", loaded, lineage)
	}

	RemoveLineage(root)
	if _, err := os.Stat(filepath.Join(root, LineageFile)); !os.IsNotExist(err) {
		t.Fatal("lineage file still present after removal")
	}

	// Second removal warns but must not panic or fail.
	RemoveLineage(root)
}

func TestLoadLineageMissingIsNil(t *testing.T) {
	lineage, err := LoadLineage(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lineage != nil {
		t.Fatalf("expected nil, got %v", lineage)
	}
}

func TestLineageWriteEmptyFails(t *testing.T) {
	if err := (Lineage{}).Write(t.TempDir()); err == nil {
		t.Fatal("expected error writing empty lineage")
	}
}
