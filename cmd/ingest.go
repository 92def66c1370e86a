package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hf-eolus/sarwind-cli/internal/dataset"
	"github.com/hf-eolus/sarwind-cli/internal/pipeline"
	"github.com/hf-eolus/sarwind-cli/internal/stac"
)

var (
	ingestDest            string
	ingestProfile         string
	ingestRegion          string
	ingestDatabase        string
	ingestTable           string
	ingestCollectionID    string
	ingestSourceDir       string
	ingestOutputDir       string
	ingestItemProps       string
	ingestCollectionProps string
	ingestAOI             string
	ingestConcurrency     int
	ingestKeepOutput      bool
	ingestSkipUpload      bool
	ingestSkipRegister    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build, publish and register the wind dataset from scene extracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		applyIngestFlags(cmd)

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		opts, err := buildOptions()
		if err != nil {
			return err
		}
		opts.SkipUpload = ingestSkipUpload
		opts.SkipRegister = ingestSkipRegister
		opts.KeepOutput = ingestKeepOutput

		var up pipeline.Uploader
		var reg pipeline.Registrar
		if !ingestSkipUpload || !ingestSkipRegister {
			ac, err := loadAWSConfig(ctx)
			if err != nil {
				return err
			}
			if !ingestSkipUpload {
				up, err = ac.uploader()
				if err != nil {
					return err
				}
			}
			if !ingestSkipRegister {
				reg = ac.registrar()
			}
		}

		result, err := pipeline.New(opts, up, reg).Run(ctx)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		zap.L().Info("ingest complete",
			zap.String("run_id", result.RunID),
			zap.Int("partitions", result.Partitions),
			zap.Int64("rows", result.Rows),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// applyIngestFlags copies explicitly-set flags over the loaded configuration
// so the precedence is flags > env > file > defaults.
func applyIngestFlags(cmd *cobra.Command) {
	set := cmd.Flags().Changed
	if set("dest") {
		cfg.Dest = ingestDest
	}
	if set("profile") {
		cfg.AWS.Profile = ingestProfile
	}
	if set("region") {
		cfg.AWS.Region = ingestRegion
	}
	if set("database") {
		cfg.Athena.Database = ingestDatabase
	}
	if set("table") {
		cfg.Athena.Table = ingestTable
	}
	if set("collection-id") {
		cfg.Catalog.CollectionID = ingestCollectionID
	}
	if set("source-dir") {
		cfg.Dirs.Source = ingestSourceDir
	}
	if set("output-dir") {
		cfg.Dirs.Output = ingestOutputDir
	}
	if set("item-properties") {
		cfg.Catalog.ItemProperties = ingestItemProps
	}
	if set("collection-properties") {
		cfg.Catalog.CollectionProperties = ingestCollectionProps
	}
	if set("aoi") {
		cfg.Extract.AOI = ingestAOI
	}
	if set("concurrency") {
		cfg.Extract.Concurrency = ingestConcurrency
	}
}

// buildOptions assembles pipeline options from the effective configuration,
// resolving property overlay files and the optional AOI shapefile.
func buildOptions() (pipeline.Options, error) {
	opts := pipeline.Options{
		SourceDir:    cfg.Dirs.Source,
		OutputDir:    cfg.Dirs.Output,
		Dest:         cfg.Dest,
		Database:     cfg.Athena.Database,
		Table:        cfg.Athena.Table,
		CollectionID: cfg.Catalog.CollectionID,
		Concurrency:  cfg.Extract.Concurrency,
		Version:      version,
	}

	if cfg.Catalog.ItemProperties != "" {
		props, err := stac.LoadProperties(cfg.Catalog.ItemProperties)
		if err != nil {
			return opts, eris.Wrap(err, "load item properties")
		}
		opts.ItemProps = props
	}
	if cfg.Catalog.CollectionProperties != "" {
		props, err := stac.LoadProperties(cfg.Catalog.CollectionProperties)
		if err != nil {
			return opts, eris.Wrap(err, "load collection properties")
		}
		opts.CollectionProps = props
	}
	if cfg.Extract.AOI != "" {
		bbox, err := dataset.AOIFromShapefile(cfg.Extract.AOI)
		if err != nil {
			return opts, eris.Wrap(err, "load AOI")
		}
		opts.AOI = &bbox
	}

	return opts, nil
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestDest, "dest", "", "s3:// destination URI for the published dataset (required)")
	f.StringVar(&ingestProfile, "profile", "", "AWS shared config profile (required)")
	f.StringVar(&ingestRegion, "region", "", "AWS region override")
	f.StringVar(&ingestDatabase, "database", "", "Athena database name (required)")
	f.StringVar(&ingestTable, "table", "", "Athena table name (required)")
	f.StringVar(&ingestCollectionID, "collection-id", "", "STAC collection identifier (required)")
	f.StringVar(&ingestSourceDir, "source-dir", "", "directory of per-scene CSV extracts")
	f.StringVar(&ingestOutputDir, "output-dir", "", "local staging directory for the dataset tree")
	f.StringVar(&ingestItemProps, "item-properties", "", "JSON file of extra properties merged into every item")
	f.StringVar(&ingestCollectionProps, "collection-properties", "", "JSON file of extra fields merged into the collection")
	f.StringVar(&ingestAOI, "aoi", "", "shapefile whose bounding box clips observations")
	f.IntVar(&ingestConcurrency, "concurrency", 0, "parallel scene files during extraction")
	f.BoolVar(&ingestKeepOutput, "keep-output", false, "retain the local output tree after a successful upload")
	f.BoolVar(&ingestSkipUpload, "skip-upload", false, "stop after the local dataset tree is built")
	f.BoolVar(&ingestSkipRegister, "skip-register", false, "do not run Athena table registration")
	_ = ingestCmd.MarkFlagRequired("dest")
	_ = ingestCmd.MarkFlagRequired("profile")
	_ = ingestCmd.MarkFlagRequired("database")
	_ = ingestCmd.MarkFlagRequired("table")
	_ = ingestCmd.MarkFlagRequired("collection-id")
	rootCmd.AddCommand(ingestCmd)
}
