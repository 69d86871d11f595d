package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/pipeline"
)

// newQuotaCmd builds the quota command: show today's estimated API usage.
func newQuotaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show today's estimated quota usage",
		Long: `Estimates today's API quota consumption from uploads recorded since local
midnight. The estimate only sees this tool's own uploads; anything else using
the same API project is invisible to it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			estimator := pipeline.NewQuotaEstimator(store, cfg.Upload.DailyQuotaLimit)

			est, err := estimator.Estimate(ctx, 0)
			if err != nil {
				return err
			}

			fmt.Printf("Daily limit:      %d units\n", cfg.Upload.DailyQuotaLimit)
			fmt.Printf("Uploads today:    %d (%d units)\n", est.UsedToday, est.UsedToday*pipeline.UploadCost)
			fmt.Printf("Remaining:        %d units\n", est.Remaining)
			fmt.Printf("Uploads possible: %d\n", est.MaxUploadable)

			return nil
		},
	}

	return cmd
}
