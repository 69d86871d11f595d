package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/meta"
	"github.com/bulktube/bulktube/internal/pipeline"
	"github.com/bulktube/bulktube/internal/scan"
	"github.com/bulktube/bulktube/internal/youtube"
)

// newUploadCmd builds the upload command: scan a directory tree and push
// every new video through the pipeline.
func newUploadCmd() *cobra.Command {
	var (
		flagDryRun      bool
		flagForce       bool
		flagSimpleCheck bool
		flagSkipQuota   bool
		flagWorkers     int
		flagPlaylist    string
		flagPrivacy     string
	)

	cmd := &cobra.Command{
		Use:   "upload <directory>",
		Short: "Upload all new videos under a directory",
		Long: `Recursively scans a directory for video files, skips anything already
recorded in the upload history, and uploads the rest. Each video lands in a
playlist named after its parent folder unless --playlist overrides it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			if info, statErr := os.Stat(dir); statErr != nil || !info.IsDir() {
				return fmt.Errorf("not a directory: %s", dir)
			}

			files, err := scan.Videos(dir, logger)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", dir, err)
			}

			if len(files) == 0 {
				statusf("No video files found under %s\n", dir)
				return nil
			}

			statusf("Found %d video file(s) under %s\n", len(files), dir)

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			privacy := flagPrivacy
			if privacy == "" {
				privacy = cfg.Upload.PrivacyStatus
			}

			if !youtube.ValidPrivacy(privacy) {
				return fmt.Errorf("invalid privacy status %q", privacy)
			}

			builder := meta.NewBuilder(meta.Templates{
				TitleTemplate:       cfg.Metadata.TitleTemplate,
				DescriptionTemplate: cfg.Metadata.DescriptionTemplate,
				Tags:                cfg.Metadata.Tags,
			}, privacy, logger)

			workers := flagWorkers
			if workers == 0 {
				workers = cfg.Upload.Workers
			}

			opts := pipeline.Options{
				Workers:      workers,
				DryRun:       flagDryRun,
				PlaylistName: flagPlaylist,
				SimpleCheck:  flagSimpleCheck,
				Force:        flagForce,
				SkipQuota:    flagSkipQuota,
				ChunkSize:    cfg.Upload.ChunkSize,
				Privacy:      privacy,
			}

			var (
				driver    pipeline.UploadDriver
				playlists pipeline.PlaylistDriver
			)

			// Dry runs never touch the network, so no client and no login needed.
			if !flagDryRun {
				client, clientErr := buildClient(ctx, logger)
				if clientErr != nil {
					return clientErr
				}

				driver = client
				playlists = youtube.NewPlaylistCache(client, logger)
			}

			quota := pipeline.NewQuotaEstimator(store, cfg.Upload.DailyQuotaLimit)
			sink := newCLIProgress(workers)

			o := pipeline.NewOrchestrator(driver, playlists, builder, store, quota, sink, logger)

			report, err := o.Run(ctx, files, opts)
			if err != nil {
				return err
			}

			printReport(report)

			if report.Failed > 0 {
				return fmt.Errorf("%d upload(s) failed", report.Failed)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "preview metadata without uploading")
	cmd.Flags().BoolVar(&flagForce, "force", false, "upload even if already in history")
	cmd.Flags().BoolVar(&flagSimpleCheck, "simple-check", false, "dedup by file path only, skipping the content hash")
	cmd.Flags().BoolVar(&flagSkipQuota, "skip-quota-check", false, "bypass the pre-flight quota estimate")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent uploads (default from config)")
	cmd.Flags().StringVar(&flagPlaylist, "playlist", "", "playlist for all uploads (default: parent folder name)")
	cmd.Flags().StringVar(&flagPrivacy, "privacy", "", "privacy status: public, private, or unlisted (default from config)")

	return cmd
}

// printReport writes the batch summary to stdout.
func printReport(report *pipeline.Report) {
	fmt.Printf("Uploaded: %d  Skipped: %d  Failed: %d", report.Uploaded, report.Skipped, report.Failed)

	if report.Previewed > 0 {
		fmt.Printf("  Previewed: %d", report.Previewed)
	}

	fmt.Println()

	if report.Halted {
		fmt.Println("Batch stopped early: daily quota or account upload limit was hit.")
	}
}
