package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/query"
	"github.com/ethpandaops/rlquery/pkg/storage"
)

var mirrorCategories []string

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Copy a task's experiment tree from S3 into the data root",
	Long: `Download every object below <category>/<task>/ from the bucket
configured in storage.s3 into the local data root. Files already present
with the same size are skipped.`,
	RunE: runMirror,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	addRootFlags(mirrorCmd)
	mirrorCmd.Flags().StringSliceVar(&mirrorCategories, "category", nil,
		"category to mirror, repeatable (default all)")
}

func runMirror(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := requireTask(cfg); err != nil {
		return err
	}

	if cfg.Storage.S3 == nil || !cfg.Storage.S3.Enabled {
		return fmt.Errorf("S3 storage is not configured or not enabled in config")
	}

	cats := query.Categories
	if len(mirrorCategories) > 0 {
		cats = make([]query.Category, 0, len(mirrorCategories))

		for _, name := range mirrorCategories {
			cat, err := query.ParseCategory(name)
			if err != nil {
				return err
			}

			cats = append(cats, cat)
		}
	}

	prefixes := make([]string, 0, len(cats))
	for _, cat := range cats {
		prefixes = append(prefixes, storage.Prefix(cat.DirName(), cfg.Query.Task))
	}

	mirror := storage.NewMirror(log, storage.NewS3Reader(cfg.Storage.S3),
		cfg.Query.DataRoot, cfg.Storage.S3.Concurrency)

	stats, err := mirror.Run(cmd.Context(), prefixes)
	if err != nil {
		return fmt.Errorf("mirroring: %w", err)
	}

	if stats.Missing > 0 {
		log.WithField("missing", stats.Missing).
			Warn("Some objects disappeared while mirroring")
	}

	return nil
}
