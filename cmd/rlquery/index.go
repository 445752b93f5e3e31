package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/catalog"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Snapshot a task's records into the catalog database",
	Long: `Query every category of the task and upsert one catalog entry per
record into the database configured in catalog.database.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	addRootFlags(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := requireTask(cfg); err != nil {
		return err
	}

	ctx := cmd.Context()

	store := catalog.NewStore(log, &cfg.Catalog.Database)
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}

	defer func() {
		if err := store.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close catalog")
		}
	}()

	idx := catalog.NewIndexer(log, store, newQuerier(cfg), cfg.Query.DataRoot, nil)

	n, err := idx.Index(ctx, cfg.Query.Task)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", cfg.Query.Task, err)
	}

	log.WithField("task", cfg.Query.Task).
		WithField("entries", n).
		Info("Catalog updated")

	return nil
}
