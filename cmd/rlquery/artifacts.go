package main

import (
	"fmt"
	"os"

	"github.com/docker/go-units"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/plot"
)

var (
	artifactRegs  []string
	artifactNames []string
	artifactJSON  bool
)

var artifactsCmd = &cobra.Command{
	Use:   "artifacts",
	Short: "List files saved by runs under the results category",
	Long: `List the files each matching run stored under
root/results/<task>, optionally restricted by plot.hp_filter and by
file name globs.`,
	RunE: runArtifacts,
}

func init() {
	rootCmd.AddCommand(artifactsCmd)
	addRootFlags(artifactsCmd)
	artifactsCmd.Flags().StringSliceVar(&artifactRegs, "reg", nil,
		"run path pattern, repeatable (defaults to plot.regs)")
	artifactsCmd.Flags().StringSliceVar(&artifactNames, "name", nil,
		"file name glob, repeatable")
	artifactsCmd.Flags().BoolVar(&artifactJSON, "json", false, "print artifacts as JSON")
}

func runArtifacts(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := requireTask(cfg); err != nil {
		return err
	}

	regs := cfg.Plot.Regs
	if cmd.Flags().Changed("reg") {
		regs = artifactRegs
	}

	orch := plot.NewOrchestrator(log, newQuerier(cfg), nil)

	artifacts, err := orch.Artifacts(plot.ArtifactOptions{
		Root:   cfg.Query.DataRoot,
		Task:   cfg.Query.Task,
		Regs:   regs,
		Names:  artifactNames,
		Filter: hpFilter(cfg),
	})
	if err != nil {
		return fmt.Errorf("listing artifacts: %w", err)
	}

	if artifactJSON {
		return writeJSON(os.Stdout, artifacts)
	}

	var total int64

	for _, a := range artifacts {
		total += a.Size

		log.WithFields(logrus.Fields{
			"run":      a.Key,
			"modified": a.ModTime.Format("2006-01-02 15:04:05"),
			"size":     units.HumanSize(float64(a.Size)),
		}).Info(a.Location)
	}

	log.WithField("files", len(artifacts)).
		WithField("total", units.HumanSize(float64(total))).
		Info("Artifacts listed")

	return nil
}
