package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/query"
)

var (
	queryCategory string
	queryPattern  string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Locate experiment records of one category",
	Long: `Resolve root/<category>/<task>/<pattern> and print the extracted records
as JSON, keyed by the run timestamp. Records without a timestamp are listed
under "unkeyed".`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	addRootFlags(queryCmd)
	queryCmd.Flags().StringVar(&queryCategory, "category", "log",
		"record category (log, archive, hyperparam, checkpoint, misc)")
	queryCmd.Flags().StringVar(&queryPattern, "pattern", "*",
		"glob pattern below root/<category>/<task>")
}

func runQuery(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := requireTask(cfg); err != nil {
		return err
	}

	cat, err := query.ParseCategory(queryCategory)
	if err != nil {
		return err
	}

	set, err := newQuerier(cfg).Query(cfg.Query.DataRoot, cat, cfg.Query.Task, queryPattern)
	if err != nil {
		return fmt.Errorf("querying %s records: %w", cat, err)
	}

	log.WithField("category", cat.String()).
		WithField("keyed", len(set.Keyed)).
		WithField("unkeyed", len(set.Unkeyed)).
		Info("Query complete")

	return writeJSON(os.Stdout, map[string]any{
		"category": cat.String(),
		"task":     cfg.Query.Task,
		"keyed":    set.Keyed,
		"unkeyed":  set.Unkeyed,
	})
}
