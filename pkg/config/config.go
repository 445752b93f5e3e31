package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// EnvPrefix prefixes every environment override, e.g.
	// RLQUERY_QUERY_DATA_ROOT.
	EnvPrefix = "RLQUERY"

	// DefaultLogLevel is the default logging level.
	DefaultLogLevel = "info"

	// DefaultDataRoot is the default experiment data root.
	DefaultDataRoot = "."

	// DefaultArchiveSuffix is the suffix archived state files carry.
	DefaultArchiveSuffix = ".pkl"

	// DefaultHyperParamFile is the stem of the per-run hyperparameter file.
	DefaultHyperParamFile = "parameter"

	// DefaultXName is the x-axis column of metric logs.
	DefaultXName = "time-step"

	// DefaultS3Region is used when an S3 section names no region.
	DefaultS3Region = "us-east-1"

	// DefaultMirrorConcurrency bounds parallel downloads of a mirror.
	DefaultMirrorConcurrency = 8
)

// Config is the root configuration for rlquery.
type Config struct {
	Global  GlobalConfig  `yaml:"global" mapstructure:"global"`
	Query   QueryConfig   `yaml:"query" mapstructure:"query"`
	Plot    PlotConfig    `yaml:"plot" mapstructure:"plot"`
	Storage StorageConfig `yaml:"storage,omitempty" mapstructure:"storage"`
	Upload  UploadConfig  `yaml:"upload,omitempty" mapstructure:"upload"`
	Catalog CatalogConfig `yaml:"catalog,omitempty" mapstructure:"catalog"`
	API     APIConfig     `yaml:"api,omitempty" mapstructure:"api"`
}

// GlobalConfig contains global application settings.
type GlobalConfig struct {
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// QueryConfig locates experiment data.
type QueryConfig struct {
	DataRoot       string `yaml:"data_root" mapstructure:"data_root"`
	Task           string `yaml:"task" mapstructure:"task"`
	ArchiveSuffix  string `yaml:"archive_suffix,omitempty" mapstructure:"archive_suffix"`
	HyperParamFile string `yaml:"hyperparam_file,omitempty" mapstructure:"hyperparam_file"`
}

// PlotConfig holds the defaults of the plot and artifacts commands.
type PlotConfig struct {
	XName          string            `yaml:"x_name" mapstructure:"x_name"`
	XMin           *float64          `yaml:"x_min,omitempty" mapstructure:"x_min"`
	XMax           *float64          `yaml:"x_max,omitempty" mapstructure:"x_max"`
	Regs           []string          `yaml:"regs,omitempty" mapstructure:"regs"`
	Metrics        []string          `yaml:"metrics,omitempty" mapstructure:"metrics"`
	SplitKeys      []string          `yaml:"split_keys,omitempty" mapstructure:"split_keys"`
	Legends        []string          `yaml:"legends,omitempty" mapstructure:"legends"`
	HPFilter       map[string][]any  `yaml:"hp_filter,omitempty" mapstructure:"hp_filter"`
	Scales         map[string]string `yaml:"scales,omitempty" mapstructure:"scales"`
	SplitByMetrics bool              `yaml:"split_by_metrics" mapstructure:"split_by_metrics"`
	UseCache       bool              `yaml:"use_cache" mapstructure:"use_cache"`
	Summarize      bool              `yaml:"summarize" mapstructure:"summarize"`
	SaveName       string            `yaml:"save_name,omitempty" mapstructure:"save_name"`
	Resample       int               `yaml:"resample,omitempty" mapstructure:"resample"`
	Width          int               `yaml:"width,omitempty" mapstructure:"width"`
	Height         int               `yaml:"height,omitempty" mapstructure:"height"`
}

// StorageConfig configures the remote experiment tree mirrored by
// `rlquery mirror`.
type StorageConfig struct {
	S3 *S3Config `yaml:"s3,omitempty" mapstructure:"s3"`
}

// UploadConfig configures where saved figures are published.
type UploadConfig struct {
	S3 *S3Config `yaml:"s3,omitempty" mapstructure:"s3"`
}

// S3Config contains S3 connection settings.
type S3Config struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	EndpointURL     string `yaml:"endpoint_url,omitempty" mapstructure:"endpoint_url"`
	Region          string `yaml:"region,omitempty" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id,omitempty" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty" mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	Prefix          string `yaml:"prefix,omitempty" mapstructure:"prefix"`
	Concurrency     int    `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
}

// CatalogConfig configures the run catalog written by `rlquery index`.
type CatalogConfig struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
}

// Load reads the configuration file at path, applies RLQUERY_* environment
// overrides and defaults. An empty path loads defaults and environment
// only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := bindEnvs(v, reflect.TypeOf(Config{}), ""); err != nil {
		return nil, fmt.Errorf("binding environment: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if path != "" {
		if err := cfg.loadNamedMaps(path); err != nil {
			return nil, err
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// loadNamedMaps re-reads the plot maps keyed by metric and hyperparameter
// names straight from the file. viper lowercases map keys and splits them
// on dots, which would break names such as "Return" or "eval.return".
func (c *Config) loadNamedMaps(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied config path
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var raw struct {
		Plot struct {
			HPFilter map[string][]any  `yaml:"hp_filter"`
			Scales   map[string]string `yaml:"scales"`
		} `yaml:"plot"`
	}

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding plot maps: %w", err)
	}

	if raw.Plot.HPFilter != nil {
		c.Plot.HPFilter = raw.Plot.HPFilter
	}

	if raw.Plot.Scales != nil {
		c.Plot.Scales = raw.Plot.Scales
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global.log_level", DefaultLogLevel)
	v.SetDefault("query.data_root", DefaultDataRoot)
	v.SetDefault("query.archive_suffix", DefaultArchiveSuffix)
	v.SetDefault("query.hyperparam_file", DefaultHyperParamFile)
	v.SetDefault("plot.x_name", DefaultXName)
	v.SetDefault("plot.split_by_metrics", true)
	v.SetDefault("plot.summarize", true)
	v.SetDefault("catalog.database.driver", "sqlite")
	v.SetDefault("catalog.database.sqlite.path", "rlquery.db")
	v.SetDefault("api.server.listen", ":9090")
	v.SetDefault("api.server.rate_limit.requests_per_minute", 120)
}

// bindEnvs registers every leaf key of t so environment variables override
// keys the config file does not mention.
func bindEnvs(v *viper.Viper, t reflect.Type, prefix string) error {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	for i := range t.NumField() {
		field := t.Field(i)

		tag, _, _ := strings.Cut(field.Tag.Get("mapstructure"), ",")
		if tag == "" || tag == "-" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		ft := field.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		if ft.Kind() == reflect.Struct {
			if err := bindEnvs(v, ft, key); err != nil {
				return err
			}

			continue
		}

		if err := v.BindEnv(key); err != nil {
			return err
		}
	}

	return nil
}

// applyDefaults sets default values viper cannot express.
func (c *Config) applyDefaults() {
	for _, s3 := range []*S3Config{c.Storage.S3, c.Upload.S3} {
		if s3 == nil {
			continue
		}

		if s3.Region == "" {
			s3.Region = DefaultS3Region
		}

		if s3.Concurrency <= 0 {
			s3.Concurrency = DefaultMirrorConcurrency
		}
	}

	if c.Plot.HPFilter == nil {
		c.Plot.HPFilter = make(map[string][]any, 4)
	}

	if c.Plot.Scales == nil {
		c.Plot.Scales = make(map[string]string, 4)
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Query.HyperParamFile == "" {
		return fmt.Errorf("query.hyperparam_file must not be empty")
	}

	if c.Plot.XMin != nil && c.Plot.XMax != nil && *c.Plot.XMin > *c.Plot.XMax {
		return fmt.Errorf("plot.x_min (%v) is above plot.x_max (%v)", *c.Plot.XMin, *c.Plot.XMax)
	}

	if len(c.Plot.Legends) > 0 && len(c.Plot.Regs) > 0 && len(c.Plot.Legends) != len(c.Plot.Regs) {
		return fmt.Errorf(
			"plot.legends has %d entries but plot.regs has %d",
			len(c.Plot.Legends), len(c.Plot.Regs),
		)
	}

	if c.Plot.Resample < 0 || c.Plot.Width < 0 || c.Plot.Height < 0 {
		return fmt.Errorf("plot.resample, plot.width and plot.height must not be negative")
	}

	if err := c.Storage.S3.validate("storage.s3"); err != nil {
		return err
	}

	if err := c.Upload.S3.validate("upload.s3"); err != nil {
		return err
	}

	if err := c.Catalog.Database.Validate(); err != nil {
		return fmt.Errorf("catalog.database: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	return nil
}

func (s *S3Config) validate(section string) error {
	if s == nil || !s.Enabled {
		return nil
	}

	if s.Bucket == "" {
		return fmt.Errorf("%s.bucket is required when enabled", section)
	}

	return nil
}
