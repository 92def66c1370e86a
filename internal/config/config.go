package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	AWS     AWSConfig     `yaml:"aws" mapstructure:"aws"`
	Dest    string        `yaml:"dest" mapstructure:"dest"`
	Athena  AthenaConfig  `yaml:"athena" mapstructure:"athena"`
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Dirs    DirsConfig    `yaml:"dirs" mapstructure:"dirs"`
	Extract ExtractConfig `yaml:"extract" mapstructure:"extract"`
	Upload  UploadConfig  `yaml:"upload" mapstructure:"upload"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// AWSConfig selects the credentials and region used for S3 and Athena.
type AWSConfig struct {
	Profile string `yaml:"profile" mapstructure:"profile"`
	Region  string `yaml:"region" mapstructure:"region"`
}

// AthenaConfig names the Glue database and table the dataset registers as.
type AthenaConfig struct {
	Database         string `yaml:"database" mapstructure:"database"`
	Table            string `yaml:"table" mapstructure:"table"`
	WorkGroup        string `yaml:"workgroup" mapstructure:"workgroup"`
	ResultLocation   string `yaml:"result_location" mapstructure:"result_location"`
	PollIntervalSecs int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
}

// CatalogConfig configures the STAC collection and optional property overlays.
type CatalogConfig struct {
	CollectionID         string `yaml:"collection_id" mapstructure:"collection_id"`
	ItemProperties       string `yaml:"item_properties" mapstructure:"item_properties"`
	CollectionProperties string `yaml:"collection_properties" mapstructure:"collection_properties"`
}

// DirsConfig holds the local working directories.
type DirsConfig struct {
	Source string `yaml:"source" mapstructure:"source"`
	Output string `yaml:"output" mapstructure:"output"`
}

// ExtractConfig configures observation extraction.
type ExtractConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	AOI         string `yaml:"aoi" mapstructure:"aoi"`
}

// UploadConfig configures S3 pacing and retry.
type UploadConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxAttempts       int     `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SARWIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("dirs.source", ".")
	v.SetDefault("dirs.output", "output")
	v.SetDefault("extract.concurrency", 4)
	v.SetDefault("athena.poll_interval_secs", 2)
	v.SetDefault("upload.requests_per_second", 20)
	v.SetDefault("upload.max_attempts", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration is sufficient for the given run
// mode ("ingest", "catalog", or "register"). All problems are reported in
// one pass.
func (c *Config) Validate(mode string) error {
	var problems []string

	requireSet := func(name, value string) {
		if value == "" {
			problems = append(problems, name+" is required")
		}
	}

	switch mode {
	case "ingest":
		requireSet("dest", c.Dest)
		requireSet("aws.profile", c.AWS.Profile)
		requireSet("athena.database", c.Athena.Database)
		requireSet("athena.table", c.Athena.Table)
		requireSet("catalog.collection_id", c.Catalog.CollectionID)
		if c.Extract.Concurrency < 1 || c.Extract.Concurrency > 64 {
			problems = append(problems, "extract.concurrency must be between 1 and 64")
		}
	case "catalog":
		requireSet("catalog.collection_id", c.Catalog.CollectionID)
		requireSet("dirs.output", c.Dirs.Output)
	case "register":
		requireSet("dest", c.Dest)
		requireSet("aws.profile", c.AWS.Profile)
		requireSet("athena.database", c.Athena.Database)
		requireSet("athena.table", c.Athena.Table)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if mode == "ingest" || mode == "register" {
		if !strings.HasPrefix(c.Dest, "s3://") && c.Dest != "" {
			problems = append(problems, "dest must be an s3:// URI")
		}
		if c.Athena.PollIntervalSecs < 1 {
			problems = append(problems, "athena.poll_interval_secs must be >= 1")
		}
	}
	if mode == "ingest" {
		if c.Upload.RequestsPerSecond <= 0 {
			problems = append(problems, "upload.requests_per_second must be > 0")
		}
		if c.Upload.MaxAttempts < 1 {
			problems = append(problems, "upload.max_attempts must be >= 1")
		}
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
