package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/api"
	"github.com/ethpandaops/rlquery/pkg/catalog"
	"github.com/ethpandaops/rlquery/pkg/plot"
)

var (
	serveListen        string
	serveCatalog       bool
	serveIndexTasks    []string
	serveIndexInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only JSON API server",
	Long: `Serve query results, grouped figures and (with --catalog) the run
catalog over HTTP. With --index-interval the catalog is refreshed in the
background for every --index-task.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addRootFlags(serveCmd)

	f := serveCmd.Flags()
	f.StringVar(&serveListen, "listen", "", "listen address (overrides api.server.listen)")
	f.BoolVar(&serveCatalog, "catalog", false, "serve the catalog database")
	f.StringSliceVar(&serveIndexTasks, "index-task", nil, "task to keep indexed, repeatable (defaults to query.task)")
	f.DurationVar(&serveIndexInterval, "index-interval", 0, "catalog refresh interval, 0 disables background indexing")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("listen") {
		cfg.API.Server.Listen = serveListen
	}

	// Set up context with signal handling.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	querier := newQuerier(cfg)

	deps := api.Deps{
		Root:    cfg.Query.DataRoot,
		Querier: querier,
		Plotter: plot.NewOrchestrator(log, querier,
			plot.NewTerminalRenderer(cfg.Plot.Width, cfg.Plot.Height)),
	}

	var indexer catalog.Indexer

	if serveCatalog {
		store := catalog.NewStore(log, &cfg.Catalog.Database)
		if err := store.Start(ctx); err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}

		defer func() {
			if err := store.Stop(); err != nil {
				log.WithError(err).Warn("Failed to close catalog")
			}
		}()

		deps.Catalog = store

		if serveIndexInterval > 0 {
			tasks := serveIndexTasks
			if len(tasks) == 0 && cfg.Query.Task != "" {
				tasks = []string{cfg.Query.Task}
			}

			if len(tasks) == 0 {
				return fmt.Errorf("background indexing needs --index-task or query.task")
			}

			indexer = catalog.NewIndexer(log, store, querier, cfg.Query.DataRoot, nil)
			if err := indexer.Start(ctx, tasks, serveIndexInterval); err != nil {
				return fmt.Errorf("starting catalog indexer: %w", err)
			}
		}
	}

	srv := api.NewServer(log, &cfg.API, deps)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting api server: %w", err)
	}

	// Wait for shutdown signal.
	select {
	case sig := <-sigCh:
		log.WithField("signal", sig).Info("Shutting down API server")
	case <-ctx.Done():
	}

	cancel()

	if indexer != nil {
		if err := indexer.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop catalog indexer")
		}
	}

	if err := srv.Stop(); err != nil {
		return fmt.Errorf("stopping api server: %w", err)
	}

	return nil
}
