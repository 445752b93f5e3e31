package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/config"
	"github.com/ethpandaops/rlquery/pkg/plot"
	"github.com/ethpandaops/rlquery/pkg/series"
)

var (
	plotRegs      []string
	plotMetrics   []string
	plotSplitKeys []string
	plotLegends   []string
	plotXName     string
	plotXMin      float64
	plotXMax      float64
	plotSaveName  string
	plotMerge     bool
	plotNoCache   bool
	plotJSON      bool
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Group runs and chart their progress logs",
	Long: `Locate the runs matched by each --reg pattern, attach their
hyperparameters, group them by --split-key values (or by pattern when
--legend is given) and draw one averaged curve per group and metric.`,
	RunE: runPlot,
}

func init() {
	rootCmd.AddCommand(plotCmd)
	addRootFlags(plotCmd)

	f := plotCmd.Flags()
	f.StringSliceVar(&plotRegs, "reg", nil, "run path pattern, repeatable (overrides plot.regs)")
	f.StringSliceVar(&plotMetrics, "metric", nil, "metric column, repeatable (overrides plot.metrics)")
	f.StringSliceVar(&plotSplitKeys, "split-key", nil, "hyperparameter to split by (overrides plot.split_keys)")
	f.StringSliceVar(&plotLegends, "legend", nil, "legend per --reg, enables pattern grouping (overrides plot.legends)")
	f.StringVar(&plotXName, "x", "", "x-axis column (overrides plot.x_name)")
	f.Float64Var(&plotXMin, "x-min", 0, "lower x bound")
	f.Float64Var(&plotXMax, "x-max", 0, "upper x bound")
	f.StringVar(&plotSaveName, "save", "", "save the figure under results/easy_plot/<name>")
	f.BoolVar(&plotMerge, "merge-metrics", false, "draw all metrics in one panel")
	f.BoolVar(&plotNoCache, "no-cache", false, "reload progress logs instead of using the cache")
	f.BoolVar(&plotJSON, "json", false, "print the figure as JSON instead of a chart")
}

func runPlot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := requireTask(cfg); err != nil {
		return err
	}

	applyPlotFlags(cmd, &cfg.Plot)

	opts, err := plotOptions(cfg)
	if err != nil {
		return err
	}

	orch := plot.NewOrchestrator(log, newQuerier(cfg),
		plot.NewTerminalRenderer(cfg.Plot.Width, cfg.Plot.Height))

	if plotJSON {
		res, err := orch.Plot(opts, nil)
		if err != nil {
			return fmt.Errorf("plotting: %w", err)
		}

		return writeJSON(os.Stdout, res)
	}

	res, err := orch.Plot(opts, os.Stdout)
	if err != nil {
		return fmt.Errorf("plotting: %w", err)
	}

	if res.SavedTo != "" {
		fmt.Printf("saved to %s\n", res.SavedTo)
	}

	return nil
}

func applyPlotFlags(cmd *cobra.Command, p *config.PlotConfig) {
	f := cmd.Flags()

	if f.Changed("reg") {
		p.Regs = plotRegs
	}

	if f.Changed("metric") {
		p.Metrics = plotMetrics
	}

	if f.Changed("split-key") {
		p.SplitKeys = plotSplitKeys
	}

	if f.Changed("legend") {
		p.Legends = plotLegends
	}

	if f.Changed("x") {
		p.XName = plotXName
	}

	if f.Changed("x-min") {
		p.XMin = &plotXMin
	}

	if f.Changed("x-max") {
		p.XMax = &plotXMax
	}

	if f.Changed("save") {
		p.SaveName = plotSaveName
	}

	if f.Changed("merge-metrics") {
		p.SplitByMetrics = !plotMerge
	}

	if f.Changed("no-cache") {
		p.UseCache = !plotNoCache
	}
}

func plotOptions(cfg *config.Config) (plot.Options, error) {
	fns, err := transforms(cfg)
	if err != nil {
		return plot.Options{}, err
	}

	return plot.Options{
		Root:           cfg.Query.DataRoot,
		Task:           cfg.Query.Task,
		Regs:           cfg.Plot.Regs,
		SplitKeys:      cfg.Plot.SplitKeys,
		Metrics:        cfg.Plot.Metrics,
		XName:          cfg.Plot.XName,
		XBound:         series.Bound{Min: cfg.Plot.XMin, Max: cfg.Plot.XMax},
		Transforms:     fns,
		Legends:        cfg.Plot.Legends,
		Filter:         hpFilter(cfg),
		SplitByMetrics: cfg.Plot.SplitByMetrics,
		UseCache:       cfg.Plot.UseCache,
		Summarize:      cfg.Plot.Summarize,
		SaveName:       cfg.Plot.SaveName,
		Resample:       cfg.Plot.Resample,
	}, nil
}
