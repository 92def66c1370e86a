// Package pipeline orchestrates the end-to-end ingestion run: extract
// observations from scene extracts, materialize the partitioned parquet
// dataset, assemble and validate the catalog, then publish and register it.
// Each stage is a pure function over the previous stage's output; the
// pipeline only sequences them and reports progress.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/dataset"
	"github.com/hf-eolus/sarwind-cli/internal/ddl"
	"github.com/hf-eolus/sarwind-cli/internal/model"
	"github.com/hf-eolus/sarwind-cli/internal/stac"
	"github.com/hf-eolus/sarwind-cli/internal/upload"
)

// Uploader publishes a local tree to the destination. *upload.Uploader
// satisfies it.
type Uploader interface {
	UploadTree(ctx context.Context, root string) (*upload.Result, error)
}

// Registrar makes the published dataset queryable. *ddl.Registrar
// satisfies it.
type Registrar interface {
	Register(ctx context.Context, database, table, columns, location string) error
}

// Options configures a pipeline run.
type Options struct {
	SourceDir string
	OutputDir string
	Dest      string

	Database string
	Table    string

	CollectionID    string
	Description     string
	ItemProps       map[string]any
	CollectionProps map[string]any

	AOI         *model.BBox
	Concurrency int

	SkipUpload   bool
	SkipRegister bool
	KeepOutput   bool

	// Version identifies the producing software in item provenance.
	Version string
}

// Result summarizes a completed run.
type Result struct {
	RunID      string
	Partitions int
	Rows       int64
	Objects    int
	Registered bool
	OutputDir  string
	Duration   time.Duration
}

// Pipeline wires the ingestion stages to their external dependencies.
type Pipeline struct {
	opts      Options
	uploader  Uploader
	registrar Registrar
}

// New creates a Pipeline. uploader and registrar may be nil when the
// corresponding stage is skipped.
func New(opts Options, uploader Uploader, registrar Registrar) *Pipeline {
	return &Pipeline{opts: opts, uploader: uploader, registrar: registrar}
}

// Run executes the full ingestion sequence. The catalog is fully assembled
// and validated on local disk before anything is uploaded, so a failed run
// never publishes a partial dataset.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
	)
	start := time.Now()
	log.Info("starting ingestion run",
		zap.String("source_dir", p.opts.SourceDir),
		zap.String("output_dir", p.opts.OutputDir),
	)

	res := &Result{RunID: runID, OutputDir: p.opts.OutputDir}

	var observations []model.Observation
	var sourceFiles []string
	err := p.stage(log, "extract", func() error {
		var err error
		observations, sourceFiles, err = dataset.Extract(ctx, p.opts.SourceDir, dataset.ExtractOptions{
			Concurrency: p.opts.Concurrency,
			AOI:         p.opts.AOI,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	var wr *dataset.WriteResult
	err = p.stage(log, "write-dataset", func() error {
		var err error
		wr, err = dataset.WriteDataset(ctx, p.opts.OutputDir, observations)
		return err
	})
	if err != nil {
		return nil, err
	}
	res.Partitions = len(wr.Partitions)
	res.Rows = wr.TotalRows

	lineage := dataset.BuildLineage(observations)
	if len(lineage) == 0 {
		lineage = dataset.LineageFromFilenames(sourceFiles)
	}
	if len(lineage) > 0 {
		if err := lineage.Write(p.opts.OutputDir); err != nil {
			return nil, eris.Wrap(err, "pipeline: lineage")
		}
	} else {
		log.Warn("no lineage could be derived, items will carry generic provenance")
	}

	err = p.stage(log, "catalog", func() error {
		return p.buildCatalog(wr.Partitions, lineage, runID)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(log, "export-ddl", func() error {
		_, err := ddl.WriteColumnsFile(p.opts.OutputDir, model.OWISchema())
		return err
	})
	if err != nil {
		return nil, err
	}

	// The lineage file is a working artifact, not part of the published tree.
	dataset.RemoveLineage(p.opts.OutputDir)

	if !p.opts.SkipUpload && p.uploader != nil {
		var ur *upload.Result
		err = p.stage(log, "upload", func() error {
			var err error
			ur, err = p.uploader.UploadTree(ctx, p.opts.OutputDir)
			return err
		})
		if err != nil {
			return nil, err
		}
		res.Objects = ur.Objects

		if !p.opts.KeepOutput {
			if err := os.RemoveAll(p.opts.OutputDir); err != nil {
				log.Warn("could not remove local output tree", zap.Error(err))
			}
		}
	}

	if !p.opts.SkipRegister && p.registrar != nil {
		err = p.stage(log, "register", func() error {
			return p.register(ctx)
		})
		if err != nil {
			return nil, err
		}
		res.Registered = true
	}

	res.Duration = time.Since(start)
	log.Info("ingestion run complete",
		zap.Int("partitions", res.Partitions),
		zap.Int64("rows", res.Rows),
		zap.Int("objects", res.Objects),
		zap.Bool("registered", res.Registered),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// Catalog rebuilds the STAC tree from parquet files already present under
// the output directory's assets folder. It reuses a lineage file if one was
// left behind by an earlier run.
func (p *Pipeline) Catalog(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "pipeline"),
		zap.String("run_id", runID),
	)
	start := time.Now()

	assetsDir := filepath.Join(p.opts.OutputDir, dataset.AssetsDir)
	partitions, err := dataset.ScanAssets(assetsDir)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: scan assets")
	}

	lineage, err := dataset.LoadLineage(p.opts.OutputDir)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load lineage")
	}
	if lineage == nil {
		names := make([]string, 0, len(partitions))
		for _, part := range partitions {
			names = append(names, part.SourceFiles...)
		}
		lineage = dataset.LineageFromFilenames(names)
	}

	if err := p.stage(log, "catalog", func() error {
		return p.buildCatalog(partitions, lineage, runID)
	}); err != nil {
		return nil, err
	}

	if err := p.stage(log, "export-ddl", func() error {
		_, err := ddl.WriteColumnsFile(p.opts.OutputDir, model.OWISchema())
		return err
	}); err != nil {
		return nil, err
	}

	var rows int64
	for _, part := range partitions {
		rows += part.RowCount
	}
	res := &Result{
		RunID:      runID,
		Partitions: len(partitions),
		Rows:       rows,
		OutputDir:  p.opts.OutputDir,
		Duration:   time.Since(start),
	}
	log.Info("catalog rebuilt",
		zap.Int("partitions", res.Partitions),
		zap.Int64("rows", res.Rows),
	)
	return res, nil
}

// Register runs only the table registration against an already-published
// dataset.
func (p *Pipeline) Register(ctx context.Context) error {
	if p.registrar == nil {
		return eris.New("pipeline: no registrar configured")
	}
	log := zap.L().With(zap.String("component", "pipeline"))
	return p.stage(log, "register", func() error {
		return p.register(ctx)
	})
}

func (p *Pipeline) buildCatalog(partitions []dataset.PartitionStats, lineage dataset.Lineage, runID string) error {
	schema := model.OWISchema()

	items := make([]*stac.Item, 0, len(partitions))
	for _, part := range partitions {
		item, err := stac.NewItem(part, schema, p.opts.ItemProps)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	description := p.opts.Description
	if description == "" {
		description = stac.DefaultDescription
	}
	catalog, err := stac.NewCatalog(p.opts.CollectionID, description, items, schema, p.opts.CollectionProps)
	if err != nil {
		return err
	}

	stac.AnnotateProvenance(items, lineage, stac.Producer{
		Name:    "sarwind",
		Version: p.opts.Version,
		RunID:   runID,
	})

	return catalog.Save(p.opts.OutputDir)
}

func (p *Pipeline) register(ctx context.Context) error {
	columns, err := ddl.ExportColumns(model.OWISchema())
	if err != nil {
		return err
	}
	location := strings.TrimSuffix(p.opts.Dest, "/") + "/" + dataset.AssetsDir + "/"
	return p.registrar.Register(ctx, p.opts.Database, p.opts.Table, columns, location)
}

func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		log.Error("stage failed",
			zap.String("stage", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return eris.Wrapf(err, "pipeline: %s", name)
	}
	log.Info("stage complete",
		zap.String("stage", name),
		zap.Duration("duration", duration),
	)
	return nil
}
