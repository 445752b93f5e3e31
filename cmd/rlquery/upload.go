package main

import (
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/rlquery/pkg/plot"
	"github.com/ethpandaops/rlquery/pkg/upload"
)

var uploadDir string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload saved figures to S3",
	Long: `Upload the results/easy_plot directory of the data root (or --dir) to
the bucket configured in upload.s3.`,
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	addRootFlags(uploadCmd)
	uploadCmd.Flags().StringVar(&uploadDir, "dir", "",
		"directory to upload (default <root>/results/easy_plot)")
}

func runUpload(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Upload.S3 == nil || !cfg.Upload.S3.Enabled {
		return fmt.Errorf("S3 upload is not configured or not enabled in config")
	}

	dir := uploadDir
	if dir == "" {
		dir = plot.SaveDir(cfg.Query.DataRoot)
	}

	uploader, err := upload.NewS3Uploader(log, cfg.Upload.S3)
	if err != nil {
		return fmt.Errorf("creating S3 uploader: %w", err)
	}

	ctx := cmd.Context()

	if err := uploader.Preflight(ctx); err != nil {
		return fmt.Errorf("checking bucket access: %w", err)
	}

	log.WithField("dir", dir).Info("Uploading figures")

	files, size, err := uploader.Upload(ctx, dir)
	if err != nil {
		return fmt.Errorf("uploading figures: %w", err)
	}

	log.WithField("files", files).
		WithField("size", units.HumanSize(float64(size))).
		Info("Upload completed successfully")

	return nil
}
