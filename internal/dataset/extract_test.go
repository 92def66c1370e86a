package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

const extractHeader = "firstMeasurementTime,lastMeasurementTime,owiLon,owiLat,owiWindSpeed,owiWindDirection,owiMask,owiInversionQuality,owiHeading,owiWindQuality,owiRadVel\n"

func writeScene(t *testing.T, dir, name, rows string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(extractHeader+rows), 0o644); err != nil {
		t.Fatalf("write scene %s: %v", name, err)
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, "S1A_20240101_a.csv",
		"2024-01-01T00:00:00Z,2024-01-01T00:00:02Z,-3.70,40.41,5.0,180,0,1,345,2,0.5\n"+
			"2024-01-01T00:00:01Z,2024-01-01T00:00:03Z,-3.60,40.42,6.0,181,0,1,345,2,0.4\n")
	writeScene(t, dir, "S1B_20240102_b.csv",
		"2024-01-02T12:00:00Z,2024-01-02T12:00:02Z,-3.65,40.40,7.5,179,0,1,200,2,0.3\n")

	observations, names, err := Extract(context.Background(), dir, ExtractOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(observations) != 3 {
		t.Fatalf("got %d observations, want 3", len(observations))
	}
	if len(names) != 2 {
		t.Fatalf("got %d source names, want 2", len(names))
	}

	// Files are globbed in sorted order, so aggregation order is stable.
	first := observations[0]
	if first.SourceFile != "S1A_20240101_a.csv" {
		t.Errorf("source file = %s", first.SourceFile)
	}
	if first.Date != "2024-01-01" {
		t.Errorf("date = %s, want 2024-01-01", first.Date)
	}
	if first.RowID == 0 {
		t.Error("rowid not assigned")
	}
	want := RowID(first.FirstMeasurementTime, first.Lon, first.Lat, first.WindSpeed)
	if first.RowID != want {
		t.Errorf("rowid = %d, want %d", first.RowID, want)
	}
}

func TestExtractOrderIndependentRowIDs(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	row1 := "2024-01-01T00:00:00Z,2024-01-01T00:00:02Z,-3.70,40.41,5.0,180,0,1,345,2,0.5\n"
	row2 := "2024-01-01T00:00:01Z,2024-01-01T00:00:03Z,-3.60,40.42,6.0,181,0,1,345,2,0.4\n"

	writeScene(t, dirA, "scene_20240101.csv", row1+row2)
	writeScene(t, dirB, "scene_20240101.csv", row2+row1)

	obsA, _, err := Extract(context.Background(), dirA, ExtractOptions{})
	if err != nil {
		t.Fatalf("extract A: %v", err)
	}
	obsB, _, err := Extract(context.Background(), dirB, ExtractOptions{})
	if err != nil {
		t.Fatalf("extract B: %v", err)
	}

	idsA := map[int64]bool{}
	for _, o := range obsA {
		idsA[o.RowID] = true
	}
	for _, o := range obsB {
		if !idsA[o.RowID] {
			t.Errorf("rowid %d not stable across row order", o.RowID)
		}
	}
}

func TestExtractNaNMeasurement(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, "scene_20240101.csv",
		"2024-01-01T00:00:00Z,2024-01-01T00:00:02Z,-3.70,40.41,NaN,,0,1,345,2,0.5\n")

	observations, _, err := Extract(context.Background(), dir, ExtractOptions{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(observations))
	}

	o := observations[0]
	if !math.IsNaN(o.WindSpeed) || !math.IsNaN(o.WindDirection) {
		t.Error("missing measurements should parse as NaN")
	}
	if o.RowID == 0 {
		t.Error("NaN measurement must still yield a deterministic rowid")
	}
}

func TestExtractSkipsMalformedRows(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, "scene_20240101.csv",
		"not-a-time,2024-01-01T00:00:02Z,-3.70,40.41,5.0,180,0,1,345,2,0.5\n"+
			"2024-01-01T00:00:00Z,2024-01-01T00:00:02Z,bad-lon,40.41,5.0,180,0,1,345,2,0.5\n"+
			"2024-01-01T00:00:01Z,2024-01-01T00:00:03Z,-3.60,40.42,6.0,181,0,1,345,2,0.4\n")

	observations, _, err := Extract(context.Background(), dir, ExtractOptions{})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(observations) != 1 {
		t.Fatalf("got %d observations, want 1", len(observations))
	}
}

func TestExtractAOIFilter(t *testing.T) {
	dir := t.TempDir()
	writeScene(t, dir, "scene_20240101.csv",
		"2024-01-01T00:00:00Z,2024-01-01T00:00:02Z,-3.70,40.41,5.0,180,0,1,345,2,0.5\n"+
			"2024-01-01T00:00:01Z,2024-01-01T00:00:03Z,10.0,50.0,6.0,181,0,1,345,2,0.4\n")

	aoi := &model.BBox{MinX: -4, MinY: 40, MaxX: -3, MaxY: 41}
	observations, _, err := Extract(context.Background(), dir, ExtractOptions{AOI: aoi})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(observations) != 1 {
		t.Fatalf("got %d observations, want 1 inside AOI", len(observations))
	}
	if observations[0].Lon != -3.70 {
		t.Errorf("kept wrong observation: lon = %v", observations[0].Lon)
	}
}

func TestExtractMissingColumn(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.csv"),
		[]byte("owiLon,owiLat\n-3.7,40.41\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Extract(context.Background(), dir, ExtractOptions{}); err == nil {
		t.Fatal("expected error for missing columns")
	}
}

func TestExtractEmptyDir(t *testing.T) {
	if _, _, err := Extract(context.Background(), t.TempDir(), ExtractOptions{}); err == nil {
		t.Fatal("expected error for empty source dir")
	}
}
