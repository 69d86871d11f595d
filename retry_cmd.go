package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/meta"
	"github.com/bulktube/bulktube/internal/pipeline"
	"github.com/bulktube/bulktube/internal/youtube"
)

// parseSince turns a --since value into a cutoff time. Calendar dates
// (2006-01-02) resolve to local midnight of that day; durations (72h) are
// subtracted from now.
func parseSince(value string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, nil
	}

	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}

	return time.Time{}, fmt.Errorf("invalid --since value %q: want a date like 2006-01-02 or a duration like 72h", value)
}

// newRetryCmd builds the retry command: re-upload previously failed files.
func newRetryCmd() *cobra.Command {
	var (
		flagDryRun    bool
		flagSince     string
		flagError     string
		flagLimit     int
		flagPlaylist  string
		flagWorkers   int
		flagSkipQuota bool
	)

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Retry previously failed uploads",
		Long: `Selects failed rows from the upload history, filters them by age, error
text, and playlist, and re-uploads whatever still exists on disk. Files are
grouped by their recorded playlist so each lands where it originally aimed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			filter := pipeline.RetryFilter{
				ErrorSubstr: flagError,
				Limit:       flagLimit,
				Playlist:    flagPlaylist,
			}

			if flagSince != "" {
				since, err := parseSince(flagSince, time.Now())
				if err != nil {
					return err
				}

				filter.Since = since
			}

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			planner := pipeline.NewRetryPlanner(store, logger)

			batches, err := planner.Plan(ctx, filter)
			if err != nil {
				return err
			}

			if len(batches) == 0 {
				statusf("Nothing to retry.\n")
				return nil
			}

			total := 0
			for _, b := range batches {
				total += len(b.Files)
			}

			statusf("Retrying %d file(s) in %d playlist batch(es)\n", total, len(batches))

			if flagDryRun {
				for _, b := range batches {
					fmt.Printf("%s:\n", b.PlaylistName)
					for _, f := range b.Files {
						fmt.Printf("  %s\n", f)
					}
				}

				return nil
			}

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			builder := meta.NewBuilder(meta.Templates{
				TitleTemplate:       cfg.Metadata.TitleTemplate,
				DescriptionTemplate: cfg.Metadata.DescriptionTemplate,
				Tags:                cfg.Metadata.Tags,
			}, cfg.Upload.PrivacyStatus, logger)

			workers := flagWorkers
			if workers == 0 {
				workers = cfg.Upload.Workers
			}

			quota := pipeline.NewQuotaEstimator(store, cfg.Upload.DailyQuotaLimit)
			sink := newCLIProgress(workers)

			o := pipeline.NewOrchestrator(
				client,
				youtube.NewPlaylistCache(client, logger),
				builder,
				store,
				quota,
				sink,
				logger,
			)

			// Dedup stays on: a row that flipped to success since the plan
			// was built skips instead of re-uploading.
			opts := pipeline.Options{
				Workers:   workers,
				SkipQuota: flagSkipQuota,
				ChunkSize: cfg.Upload.ChunkSize,
				Privacy:   cfg.Upload.PrivacyStatus,
			}

			report, err := planner.Run(ctx, o, batches, opts)
			if err != nil {
				return err
			}

			printReport(report)

			if report.Failed > 0 {
				return fmt.Errorf("%d retry upload(s) failed", report.Failed)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "show what would be retried without uploading")
	cmd.Flags().StringVar(&flagSince, "since", "", "only retry failures newer than this date (2006-01-02) or duration (e.g. 72h)")
	cmd.Flags().StringVar(&flagError, "error", "", "only retry failures whose recorded error contains this text")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "retry at most this many files (0 = unlimited)")
	cmd.Flags().StringVar(&flagPlaylist, "playlist", "", "only retry failures recorded for this playlist")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent uploads (default from config)")
	cmd.Flags().BoolVar(&flagSkipQuota, "skip-quota-check", false, "bypass the pre-flight quota estimate")

	return cmd
}
