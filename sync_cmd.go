package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/pipeline"
)

// newSyncCmd builds the sync command: compare the local history against the
// channel's uploads and optionally prune stale rows.
func newSyncCmd() *cobra.Command {
	var (
		flagFix bool
		flagYes bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Compare the upload history against the channel",
		Long: `Fetches the channel's uploads playlist and diffs it against the local
history. Videos recorded locally but gone from the channel were deleted
remotely; --fix removes their history rows so the files can be re-uploaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			client, err := buildClient(ctx, logger)
			if err != nil {
				return err
			}

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			comparer := pipeline.NewSyncComparer(client, store, logger)

			report, err := comparer.Compare(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("In both:        %d\n", len(report.InBoth))
			fmt.Printf("Missing remote: %d (recorded locally, gone from the channel)\n", len(report.MissingRemote))
			fmt.Printf("Remote only:    %d (on the channel, not in history)\n", len(report.RemoteOnly))

			for _, rec := range report.MissingRemote {
				fmt.Printf("  missing: %s (%s)\n", truncateCell(rec.FilePath, 70), rec.VideoID)
			}

			if !flagFix || len(report.MissingRemote) == 0 {
				return nil
			}

			if !flagYes && !confirm(fmt.Sprintf("Delete %d stale history row(s)?", len(report.MissingRemote))) {
				statusf("Aborted.\n")
				return nil
			}

			deleted, failed := comparer.FixMissingRemote(ctx, report.MissingRemote)

			statusf("Deleted %d stale row(s)", deleted)
			if failed > 0 {
				statusf(", %d failed", failed)
			}
			statusf(".\n")

			return nil
		},
	}

	cmd.Flags().BoolVar(&flagFix, "fix", false, "delete history rows for videos gone from the channel")
	cmd.Flags().BoolVar(&flagYes, "yes", false, "skip the confirmation prompt")

	return cmd
}

// confirm asks a yes/no question on the terminal.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	answer := strings.ToLower(strings.TrimSpace(line))

	return answer == "y" || answer == "yes"
}
