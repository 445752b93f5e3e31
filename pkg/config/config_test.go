package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoad_EnvVarOverrides(t *testing.T) {
	configPath := writeConfig(t, `
global:
  log_level: info
query:
  data_root: /data/original
  task: original-task
plot:
  x_name: time-step
  metrics: [return]
  use_cache: false
  hp_filter:
    lr: [0.1, 0.01]
  scales:
    return: neg
`)

	tests := []struct {
		name     string
		envVars  map[string]string
		validate func(t *testing.T, cfg *Config)
	}{
		{
			name:    "no env vars uses yaml values",
			envVars: map[string]string{},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Global.LogLevel)
				assert.Equal(t, "/data/original", cfg.Query.DataRoot)
				assert.Equal(t, "original-task", cfg.Query.Task)
				assert.Equal(t, []string{"return"}, cfg.Plot.Metrics)
				assert.Equal(t, []any{0.1, 0.01}, cfg.Plot.HPFilter["lr"])
				assert.Equal(t, "neg", cfg.Plot.Scales["return"])
			},
		},
		{
			name: "string override - log_level",
			envVars: map[string]string{
				"RLQUERY_GLOBAL_LOG_LEVEL": "debug",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Global.LogLevel)
			},
		},
		{
			name: "string override - data_root",
			envVars: map[string]string{
				"RLQUERY_QUERY_DATA_ROOT": "/data/env",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/env", cfg.Query.DataRoot)
			},
		},
		{
			name: "boolean override - use_cache",
			envVars: map[string]string{
				"RLQUERY_PLOT_USE_CACHE": "true",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Plot.UseCache)
			},
		},
		{
			name: "key absent from file",
			envVars: map[string]string{
				"RLQUERY_PLOT_SAVE_NAME": "figure.txt",
				"RLQUERY_PLOT_X_MAX":     "1000",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "figure.txt", cfg.Plot.SaveName)
				require.NotNil(t, cfg.Plot.XMax)
				assert.Equal(t, 1000.0, *cfg.Plot.XMax)
			},
		},
		{
			name: "nested pointer section",
			envVars: map[string]string{
				"RLQUERY_STORAGE_S3_ENABLED": "true",
				"RLQUERY_STORAGE_S3_BUCKET":  "experiments",
			},
			validate: func(t *testing.T, cfg *Config) {
				require.NotNil(t, cfg.Storage.S3)
				assert.True(t, cfg.Storage.S3.Enabled)
				assert.Equal(t, "experiments", cfg.Storage.S3.Bucket)
				assert.Equal(t, DefaultS3Region, cfg.Storage.S3.Region)
			},
		},
		{
			name: "multiple overrides",
			envVars: map[string]string{
				"RLQUERY_GLOBAL_LOG_LEVEL":            "trace",
				"RLQUERY_QUERY_TASK":                  "env-task",
				"RLQUERY_CATALOG_DATABASE_DRIVER":     "postgres",
				"RLQUERY_PLOT_SPLIT_BY_METRICS":       "false",
				"RLQUERY_API_SERVER_LISTEN":           ":8080",
				"RLQUERY_QUERY_HYPERPARAM_FILE":       "params",
				"RLQUERY_CATALOG_DATABASE_MYSQL_PORT": "3307",
			},
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "trace", cfg.Global.LogLevel)
				assert.Equal(t, "env-task", cfg.Query.Task)
				assert.Equal(t, "postgres", cfg.Catalog.Database.Driver)
				assert.False(t, cfg.Plot.SplitByMetrics)
				assert.Equal(t, ":8080", cfg.API.Server.Listen)
				assert.Equal(t, "params", cfg.Query.HyperParamFile)
				assert.Equal(t, 3307, cfg.Catalog.Database.MySQL.Port)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := Load(configPath)
			require.NoError(t, err)

			tt.validate(t, cfg)
		})
	}
}

func TestLoad_DefaultsAppliedWhenEmpty(t *testing.T) {
	cfg, err := Load(writeConfig(t, "query:\n  task: exp\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultLogLevel, cfg.Global.LogLevel)
	assert.Equal(t, DefaultDataRoot, cfg.Query.DataRoot)
	assert.Equal(t, DefaultArchiveSuffix, cfg.Query.ArchiveSuffix)
	assert.Equal(t, DefaultHyperParamFile, cfg.Query.HyperParamFile)
	assert.Equal(t, DefaultXName, cfg.Plot.XName)
	assert.True(t, cfg.Plot.SplitByMetrics)
	assert.True(t, cfg.Plot.Summarize)
	assert.Equal(t, "sqlite", cfg.Catalog.Database.Driver)
	assert.NotNil(t, cfg.Plot.HPFilter)
	assert.Nil(t, cfg.Storage.S3)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NamedMapsKeepKeyCase(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
plot:
  metrics: [Return, eval.return]
  hp_filter:
    learningRate: [0.01]
    env.Name: [Hopper-v2]
  scales:
    Return: neg
    eval.return: log
`))
	require.NoError(t, err)

	assert.Equal(t, map[string][]any{
		"learningRate": {0.01},
		"env.Name":     {"Hopper-v2"},
	}, cfg.Plot.HPFilter)
	assert.Equal(t, map[string]string{
		"Return":      "neg",
		"eval.return": "log",
	}, cfg.Plot.Scales)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("RLQUERY_QUERY_TASK", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Query.Task)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "query: [unterminated\n"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	lo, hi := 10.0, 5.0

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(_ *Config) {},
		},
		{
			name: "inverted x bound",
			mutate: func(cfg *Config) {
				cfg.Plot.XMin, cfg.Plot.XMax = &lo, &hi
			},
			wantErr: "plot.x_min",
		},
		{
			name: "legend count mismatch",
			mutate: func(cfg *Config) {
				cfg.Plot.Regs = []string{"a", "b"}
				cfg.Plot.Legends = []string{"a"}
			},
			wantErr: "plot.legends",
		},
		{
			name: "enabled s3 without bucket",
			mutate: func(cfg *Config) {
				cfg.Upload.S3 = &S3Config{Enabled: true}
			},
			wantErr: "upload.s3.bucket",
		},
		{
			name: "disabled s3 without bucket",
			mutate: func(cfg *Config) {
				cfg.Storage.S3 = &S3Config{}
			},
		},
		{
			name: "unknown database driver",
			mutate: func(cfg *Config) {
				cfg.Catalog.Database.Driver = "oracle"
			},
			wantErr: "unsupported driver",
		},
		{
			name: "postgres without host",
			mutate: func(cfg *Config) {
				cfg.Catalog.Database.Driver = "postgres"
			},
			wantErr: "postgres.host",
		},
		{
			name: "rate limit without budget",
			mutate: func(cfg *Config) {
				cfg.API.Server.RateLimit = RateLimitConfig{Enabled: true}
			},
			wantErr: "requests_per_minute",
		},
		{
			name: "basic auth with plain password",
			mutate: func(cfg *Config) {
				cfg.API.Auth.Basic = BasicAuthConfig{
					Enabled: true,
					Users:   []BasicAuthUser{{Username: "admin", PasswordHash: "hunter2"}},
				}
			},
			wantErr: "bcrypt",
		},
		{
			name: "basic auth duplicate user",
			mutate: func(cfg *Config) {
				cfg.API.Auth.Basic = BasicAuthConfig{
					Enabled: true,
					Users: []BasicAuthUser{
						{Username: "admin", PasswordHash: "$2a$10$x"},
						{Username: "admin", PasswordHash: "$2a$10$y"},
					},
				}
			},
			wantErr: "duplicate username",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
