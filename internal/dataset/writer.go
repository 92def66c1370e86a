package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// AssetsDir is the directory under the output root holding partition files.
const AssetsDir = "assets"

// parquetRow is the physical layout of one dataset row. rowid is widened to
// INT64 here regardless of its upstream logical typing.
type parquetRow struct {
	RowID                int64   `parquet:"name=rowid, type=INT64"`
	FirstMeasurementTime int64   `parquet:"name=firstMeasurementTime, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	LastMeasurementTime  int64   `parquet:"name=lastMeasurementTime, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Lon                  float64 `parquet:"name=owiLon, type=DOUBLE"`
	Lat                  float64 `parquet:"name=owiLat, type=DOUBLE"`
	WindSpeed            float64 `parquet:"name=owiWindSpeed, type=DOUBLE"`
	WindDirection        float64 `parquet:"name=owiWindDirection, type=DOUBLE"`
	Mask                 float64 `parquet:"name=owiMask, type=DOUBLE"`
	InversionQuality     float64 `parquet:"name=owiInversionQuality, type=DOUBLE"`
	Heading              float64 `parquet:"name=owiHeading, type=DOUBLE"`
	WindQuality          float64 `parquet:"name=owiWindQuality, type=DOUBLE"`
	RadVel               float64 `parquet:"name=owiRadVel, type=DOUBLE"`
	Date                 int32   `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Geometry             string  `parquet:"name=geometry, type=BYTE_ARRAY"`
}

// PartitionStats summarizes one written partition file.
type PartitionStats struct {
	Date        string
	Path        string
	BBox        model.BBox
	Start       time.Time
	End         time.Time
	RowCount    int64
	SourceFiles []string
}

// WriteResult is the outcome of a full dataset write.
type WriteResult struct {
	Partitions []PartitionStats
	BBox       model.BBox
	Start      time.Time
	End        time.Time
	TotalRows  int64
}

// WriteDataset materializes all observations as one parquet file per date
// under root/assets, named <date>.parquet. A file already present for a date
// is overwritten, never merged. Each file embeds the geospatial descriptor
// in its schema metadata; if the descriptor cannot be attached the file is
// written without it and a warning is logged.
func WriteDataset(ctx context.Context, root string, observations []model.Observation) (*WriteResult, error) {
	if len(observations) == 0 {
		return nil, eris.New("dataset: no observations to write")
	}

	log := zap.L().With(zap.String("component", "dataset.writer"))

	byDate := make(map[string][]model.Observation)
	for _, o := range observations {
		byDate[o.Date] = append(byDate[o.Date], o)
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	assetsDir := filepath.Join(root, AssetsDir)
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "dataset: create assets dir")
	}

	result := &WriteResult{BBox: model.EmptyBBox()}

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "dataset: write cancelled")
		}

		path := filepath.Join(assetsDir, date+".parquet")
		if _, err := os.Stat(path); err == nil {
			log.Info("overwriting existing partition",
				zap.String("date", date),
				zap.String("path", path),
			)
		}

		stats, err := writePartition(path, date, byDate[date])
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: write partition %s", date)
		}

		result.Partitions = append(result.Partitions, stats)
		result.BBox = result.BBox.Union(stats.BBox)
		result.TotalRows += stats.RowCount
		if result.Start.IsZero() || stats.Start.Before(result.Start) {
			result.Start = stats.Start
		}
		if stats.End.After(result.End) {
			result.End = stats.End
		}

		log.Debug("partition written",
			zap.String("date", date),
			zap.Int64("rows", stats.RowCount),
			zap.Int("source_files", len(stats.SourceFiles)),
		)
	}

	log.Info("dataset written",
		zap.Int("partitions", len(result.Partitions)),
		zap.Int64("rows", result.TotalRows),
		zap.Float64s("bbox", result.BBox.Slice()),
	)
	return result, nil
}

func writePartition(path, date string, observations []model.Observation) (PartitionStats, error) {
	days, err := dateToEpochDays(date)
	if err != nil {
		return PartitionStats{}, err
	}

	stats := PartitionStats{
		Date:  date,
		Path:  path,
		BBox:  model.EmptyBBox(),
		Start: observations[0].FirstMeasurementTime,
		End:   observations[0].LastMeasurementTime,
	}

	rows := make([]parquetRow, 0, len(observations))
	sources := make(map[string]struct{})
	for _, o := range observations {
		geometry, err := EncodePointWKB(o.Lon, o.Lat)
		if err != nil {
			return PartitionStats{}, err
		}
		rows = append(rows, parquetRow{
			RowID:                o.RowID,
			FirstMeasurementTime: o.FirstMeasurementTime.UTC().UnixMilli(),
			LastMeasurementTime:  o.LastMeasurementTime.UTC().UnixMilli(),
			Lon:                  o.Lon,
			Lat:                  o.Lat,
			WindSpeed:            o.WindSpeed,
			WindDirection:        o.WindDirection,
			Mask:                 o.Mask,
			InversionQuality:     o.InversionQuality,
			Heading:              o.Heading,
			WindQuality:          o.WindQuality,
			RadVel:               o.RadVel,
			Date:                 days,
			Geometry:             string(geometry),
		})

		stats.BBox = stats.BBox.Extend(o.Lon, o.Lat)
		if o.FirstMeasurementTime.Before(stats.Start) {
			stats.Start = o.FirstMeasurementTime
		}
		if o.LastMeasurementTime.After(stats.End) {
			stats.End = o.LastMeasurementTime
		}
		if o.SourceFile != "" {
			sources[o.SourceFile] = struct{}{}
		}
	}
	stats.RowCount = int64(len(rows))
	stats.SourceFiles = sortedKeys(sources)

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return PartitionStats{}, eris.Wrapf(err, "dataset: open %s", path)
	}

	pw, err := writer.NewParquetWriter(fw, new(parquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return PartitionStats{}, eris.Wrap(err, "dataset: create parquet writer")
	}
	pw.RowGroupSize = int64(len(rows)) // one row group per partition file
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	attachGeoMetadata(pw, stats.BBox)

	for i := range rows {
		if err := pw.Write(rows[i]); err != nil {
			_ = fw.Close()
			return PartitionStats{}, eris.Wrap(err, "dataset: write row")
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return PartitionStats{}, eris.Wrap(err, "dataset: finalize parquet file")
	}
	if err := fw.Close(); err != nil {
		return PartitionStats{}, eris.Wrapf(err, "dataset: close %s", path)
	}

	return stats, nil
}

// attachGeoMetadata merges the geospatial descriptor into the file's
// key-value metadata. Failure to attach is not fatal: the file is still
// valid parquet, just without the descriptor.
func attachGeoMetadata(pw *writer.ParquetWriter, bbox model.BBox) {
	data, err := NewGeoDescriptor(bbox).Marshal()
	if err != nil {
		zap.L().Warn("dataset: could not attach geo descriptor, writing plain schema",
			zap.Error(err),
		)
		return
	}

	value := string(data)
	for _, kv := range pw.Footer.KeyValueMetadata {
		if kv.Key == GeoMetadataKey {
			kv.Value = &value
			return
		}
	}
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata, &parquet.KeyValue{
		Key:   GeoMetadataKey,
		Value: &value,
	})
}

// dateToEpochDays converts a YYYY-MM-DD partition key to days since epoch,
// the physical representation of the parquet DATE type.
func dateToEpochDays(date string) (int32, error) {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return 0, eris.Wrapf(err, "dataset: bad partition date %q", date)
	}
	return int32(t.Unix() / 86400), nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
