package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hf-eolus/sarwind-cli/internal/model"
)

// ExtractOptions configures the per-scene extract stage.
type ExtractOptions struct {
	Concurrency int         // parallel scene files (default 4)
	AOI         *model.BBox // optional area-of-interest filter
}

// Extract reads every per-scene CSV extract under dir and returns the full
// observation set with derived date and rowid fields assigned. Files are
// processed in parallel; results are collected per file and appended in one
// place after all workers finish.
func Extract(ctx context.Context, dir string, opts ExtractOptions) ([]model.Observation, []string, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: scan source dir %s", dir)
	}
	if len(files) == 0 {
		return nil, nil, eris.Errorf("dataset: no scene extracts under %s", dir)
	}
	sort.Strings(files)

	log := zap.L().With(
		zap.String("component", "dataset.extract"),
		zap.Int("files", len(files)),
	)

	perFile := make([][]model.Observation, len(files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			obs, err := extractFile(path, opts.AOI)
			if err != nil {
				return eris.Wrapf(err, "dataset: extract %s", filepath.Base(path))
			}
			perFile[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// Single aggregation point: workers never touch a shared collection.
	var all []model.Observation
	for _, obs := range perFile {
		all = append(all, obs...)
	}

	names := make([]string, len(files))
	for i, path := range files {
		names[i] = filepath.Base(path)
	}

	log.Info("extraction complete", zap.Int("observations", len(all)))
	return all, names, nil
}

// extractColumns is the required header of a scene extract.
var extractColumns = []string{
	"firstMeasurementTime", "lastMeasurementTime",
	"owiLon", "owiLat",
	"owiWindSpeed", "owiWindDirection", "owiMask",
	"owiInversionQuality", "owiHeading", "owiWindQuality", "owiRadVel",
}

func extractFile(path string, aoi *model.BBox) ([]model.Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range extractColumns {
		if _, ok := idx[name]; !ok {
			return nil, eris.Errorf("missing column %q", name)
		}
	}

	source := filepath.Base(path)
	log := zap.L().With(
		zap.String("component", "dataset.extract"),
		zap.String("file", source),
	)

	var (
		observations []model.Observation
		skipped      int
		clipped      int
	)
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "line %d", line)
		}

		field := func(name string) string { return strings.TrimSpace(record[idx[name]]) }

		first, err := time.Parse(time.RFC3339, field("firstMeasurementTime"))
		if err != nil {
			skipped++
			continue
		}
		last, err := time.Parse(time.RFC3339, field("lastMeasurementTime"))
		if err != nil {
			skipped++
			continue
		}

		lon, err := strconv.ParseFloat(field("owiLon"), 64)
		if err != nil {
			skipped++
			continue
		}
		lat, err := strconv.ParseFloat(field("owiLat"), 64)
		if err != nil {
			skipped++
			continue
		}

		if aoi != nil && !aoi.Contains(lon, lat) {
			clipped++
			continue
		}

		speed := parseMeasurement(field("owiWindSpeed"))
		o := model.Observation{
			FirstMeasurementTime: first.UTC(),
			LastMeasurementTime:  last.UTC(),
			Lon:                  lon,
			Lat:                  lat,
			WindSpeed:            speed,
			WindDirection:        parseMeasurement(field("owiWindDirection")),
			Mask:                 parseMeasurement(field("owiMask")),
			InversionQuality:     parseMeasurement(field("owiInversionQuality")),
			Heading:              parseMeasurement(field("owiHeading")),
			WindQuality:          parseMeasurement(field("owiWindQuality")),
			RadVel:               parseMeasurement(field("owiRadVel")),
			Date:                 model.PartitionDate(first),
			SourceFile:           source,
		}
		o.RowID = RowID(o.FirstMeasurementTime, o.Lon, o.Lat, o.WindSpeed)
		observations = append(observations, o)
	}

	if skipped > 0 {
		log.Warn("skipped malformed rows", zap.Int("skipped", skipped))
	}
	if clipped > 0 {
		log.Debug("rows outside AOI dropped", zap.Int("clipped", clipped))
	}
	return observations, nil
}

// parseMeasurement parses a measured scalar. Empty or unparsable fields
// become NaN so the row is still kept with a deterministic key.
func parseMeasurement(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
