package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/config"
	"github.com/ethpandaops/rlquery/pkg/group"
	"github.com/ethpandaops/rlquery/pkg/query"
	"github.com/ethpandaops/rlquery/pkg/series"
)

// Flags shared by the commands that resolve runs under a data root.
var (
	dataRoot string
	taskName string
)

func addRootFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dataRoot, "root", "", "experiment data root (overrides query.data_root)")
	cmd.Flags().StringVar(&taskName, "task", "", "task table name (overrides query.task)")
}

// loadConfig reads the config file (optional) and applies the shared
// root and task flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if f := cmd.Flags().Lookup("root"); f != nil && f.Changed {
		cfg.Query.DataRoot = dataRoot
	}

	if f := cmd.Flags().Lookup("task"); f != nil && f.Changed {
		cfg.Query.Task = taskName
	}

	if !cmd.Root().PersistentFlags().Changed("log-level") && cfg.Global.LogLevel != "" {
		level, err := logrus.ParseLevel(cfg.Global.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid global.log_level %q: %w", cfg.Global.LogLevel, err)
		}

		log.SetLevel(level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func requireTask(cfg *config.Config) error {
	if cfg.Query.Task == "" {
		return fmt.Errorf("task is required (use --task or query.task)")
	}

	return nil
}

func newQuerier(cfg *config.Config) query.Querier {
	return query.NewQuerier(log,
		query.WithArchiveSuffix(cfg.Query.ArchiveSuffix),
		query.WithHyperParamFile(cfg.Query.HyperParamFile),
	)
}

func hpFilter(cfg *config.Config) group.Filter {
	if len(cfg.Plot.HPFilter) == 0 {
		return nil
	}

	return group.Filter(cfg.Plot.HPFilter)
}

func transforms(cfg *config.Config) (map[string]series.Transform, error) {
	fns, err := series.Transforms(cfg.Plot.Metrics, cfg.Plot.Scales)
	if err != nil {
		return nil, fmt.Errorf("plot.scales: %w", err)
	}

	return fns, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	return nil
}
