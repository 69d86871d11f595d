package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bulktube/bulktube/internal/history"
)

// newHistoryCmd builds the history command group: list, delete, export,
// and import of the upload ledger.
func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and manage the upload history",
	}

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistoryImportCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	var (
		flagLimit  int
		flagFailed bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded uploads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var recs []*history.UploadRecord

			if flagFailed {
				recs, err = store.Failed(ctx)
			} else {
				recs, err = store.All(ctx, flagLimit)
			}

			if err != nil {
				return err
			}

			if len(recs) == 0 {
				statusf("History is empty.\n")
				return nil
			}

			rows := make([][]string, 0, len(recs))

			for _, rec := range recs {
				detail := rec.VideoID
				if rec.Status == history.StatusFailed {
					detail = truncateCell(rec.Error, 40)
				}

				rows = append(rows, []string{
					formatTime(time.Unix(rec.Timestamp, 0)),
					rec.Status,
					formatSize(rec.FileSize),
					truncateCell(rec.FilePath, 60),
					detail,
				})
			}

			printTable(os.Stdout, []string{"WHEN", "STATUS", "SIZE", "FILE", "VIDEO/ERROR"}, rows)

			return nil
		},
	}

	cmd.Flags().IntVar(&flagLimit, "limit", 0, "show at most this many rows (0 = all)")
	cmd.Flags().BoolVar(&flagFailed, "failed", false, "show only failed uploads")

	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	var (
		flagHash    string
		flagPath    string
		flagVideoID string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a history row by hash, path, or video ID",
		Long: `Removes one row from the upload history. Exactly one selector must be
given. Deleting a row makes the file eligible for upload again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			selectors := 0
			for _, s := range []string{flagHash, flagPath, flagVideoID} {
				if s != "" {
					selectors++
				}
			}

			if selectors != 1 {
				return fmt.Errorf("exactly one of --hash, --path, --video-id is required")
			}

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var deleted bool

			switch {
			case flagHash != "":
				deleted, err = store.DeleteByHash(ctx, flagHash)
			case flagVideoID != "":
				deleted, err = store.DeleteByVideoID(ctx, flagVideoID)
			default:
				abs, absErr := filepath.Abs(flagPath)
				if absErr != nil {
					return absErr
				}

				deleted, err = store.DeleteByPath(ctx, abs)
			}

			if err != nil {
				return err
			}

			if !deleted {
				return fmt.Errorf("no matching history row")
			}

			statusf("Deleted.\n")

			return nil
		},
	}

	cmd.Flags().StringVar(&flagHash, "hash", "", "select by content hash")
	cmd.Flags().StringVar(&flagPath, "path", "", "select by file path")
	cmd.Flags().StringVar(&flagVideoID, "video-id", "", "select by video ID")

	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	var (
		flagFormat string
		flagOutput string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the upload history as JSON or CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			var w io.Writer = os.Stdout

			if flagOutput != "" {
				f, createErr := os.Create(flagOutput)
				if createErr != nil {
					return createErr
				}
				defer f.Close()

				w = f
			}

			switch flagFormat {
			case "json":
				err = store.ExportJSON(ctx, w)
			case "csv":
				err = store.ExportCSV(ctx, w)
			default:
				return fmt.Errorf("unknown format %q (want json or csv)", flagFormat)
			}

			if err != nil {
				return err
			}

			if flagOutput != "" {
				statusf("Exported to %s\n", flagOutput)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flagFormat, "format", "json", "export format: json or csv")
	cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "write to file instead of stdout")

	return cmd
}

func newHistoryImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import history rows from a JSON or CSV export",
		Long: `Merges rows from an earlier export into the history. Rows whose content
hash already exists are skipped, so imports are safe to repeat.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := buildLogger()
			ctx := cmd.Context()

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			var recs []*history.UploadRecord

			if strings.EqualFold(filepath.Ext(args[0]), ".csv") {
				recs, err = parseCSVExport(f)
			} else {
				recs, err = history.ParseExport(f)
			}

			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			store, err := openStore(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			imported, skipped, err := store.Import(ctx, recs)
			if err != nil {
				return err
			}

			statusf("Imported %d row(s), skipped %d existing.\n", imported, skipped)

			return nil
		},
	}

	return cmd
}

// parseCSVExport reads rows in the fixed export column order.
func parseCSVExport(r io.Reader) ([]*history.UploadRecord, error) {
	cr := csv.NewReader(r)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// Skip the header row when present.
	if rows[0][0] == "file_path" {
		rows = rows[1:]
	}

	recs := make([]*history.UploadRecord, 0, len(rows))

	for i, row := range rows {
		if len(row) < 8 {
			return nil, fmt.Errorf("row %d: want 8 columns, got %d", i+1, len(row))
		}

		ts, _ := strconv.ParseInt(row[4], 10, 64)
		size, _ := strconv.ParseInt(row[7], 10, 64)

		recs = append(recs, &history.UploadRecord{
			FilePath:     row[0],
			FileHash:     row[1],
			VideoID:      row[2],
			Status:       row[3],
			Timestamp:    ts,
			Error:        row[5],
			PlaylistName: row[6],
			FileSize:     size,
		})
	}

	return recs, nil
}
