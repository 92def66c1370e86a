package dataset

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// ReadPartitionStats recovers a partition's spatial extent, temporal range
// and row count from an already-written file. The bounding box is derived
// from the stored geometries, mirroring what the writer computed.
func ReadPartitionStats(path string) (PartitionStats, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return PartitionStats{}, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer func() { _ = fr.Close() }()

	pr, err := reader.NewParquetReader(fr, new(parquetRow), 4)
	if err != nil {
		return PartitionStats{}, eris.Wrapf(err, "dataset: read %s", path)
	}
	defer pr.ReadStop()

	num := int(pr.GetNumRows())
	if num == 0 {
		return PartitionStats{}, eris.Errorf("dataset: %s has no rows", path)
	}

	rows := make([]parquetRow, num)
	if err := pr.Read(&rows); err != nil {
		return PartitionStats{}, eris.Wrapf(err, "dataset: read rows from %s", path)
	}

	stats := PartitionStats{
		Date:  PartitionDateFromPath(path),
		Path:  path,
		BBox:  model.EmptyBBox(),
		Start: time.UnixMilli(rows[0].FirstMeasurementTime).UTC(),
		End:   time.UnixMilli(rows[0].LastMeasurementTime).UTC(),
	}

	for i := range rows {
		lon, lat, err := DecodePointWKB([]byte(rows[i].Geometry))
		if err != nil {
			return PartitionStats{}, eris.Wrapf(err, "dataset: row %d of %s", i, path)
		}
		stats.BBox = stats.BBox.Extend(lon, lat)

		first := time.UnixMilli(rows[i].FirstMeasurementTime).UTC()
		last := time.UnixMilli(rows[i].LastMeasurementTime).UTC()
		if first.Before(stats.Start) {
			stats.Start = first
		}
		if last.After(stats.End) {
			stats.End = last
		}
	}
	stats.RowCount = int64(num)

	return stats, nil
}

// ScanAssets reads partition stats for every parquet file under dir, sorted
// by date. Used when cataloging a dataset produced by an earlier run.
func ScanAssets(dir string) ([]PartitionStats, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.parquet"))
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: scan %s", dir)
	}
	if len(matches) == 0 {
		return nil, eris.Errorf("dataset: no parquet files under %s", dir)
	}
	sort.Strings(matches)

	out := make([]PartitionStats, 0, len(matches))
	for _, path := range matches {
		stats, err := ReadPartitionStats(path)
		if err != nil {
			return nil, err
		}
		out = append(out, stats)
	}
	return out, nil
}

// PartitionDateFromPath derives the partition key from a flat partition file
// name such as assets/2024-01-01.parquet.
func PartitionDateFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
