package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RetryFilter selects which failed rows to retry.
type RetryFilter struct {
	Since       time.Time // zero = no time filter
	ErrorSubstr string    // case-insensitive match against the recorded failure text
	Limit       int       // cap after filtering, 0 = unlimited
	Playlist    string    // only rows recorded for this playlist
}

// RetryBatch is one playlist's worth of files to re-upload.
type RetryBatch struct {
	PlaylistName string
	Files        []string
}

// RetryPlanner turns failure rows into per-playlist upload batches.
type RetryPlanner struct {
	ledger Ledger
	logger *slog.Logger
}

// NewRetryPlanner creates a planner over the given ledger.
func NewRetryPlanner(ledger Ledger, logger *slog.Logger) *RetryPlanner {
	if logger == nil {
		logger = slog.Default()
	}

	return &RetryPlanner{ledger: ledger, logger: logger}
}

// Plan selects failed rows newest-first, applies the filter, drops rows
// whose file no longer exists on disk, and groups the survivors by playlist
// name. Rows without a recorded playlist fall back to the file's parent
// folder name.
func (p *RetryPlanner) Plan(ctx context.Context, filter RetryFilter) ([]RetryBatch, error) {
	failed, err := p.ledger.Failed(ctx)
	if err != nil {
		return nil, err
	}

	var selected int

	byPlaylist := make(map[string][]string)

	for _, rec := range failed {
		if filter.Limit > 0 && selected >= filter.Limit {
			break
		}

		if !filter.Since.IsZero() && rec.Timestamp < filter.Since.Unix() {
			continue
		}

		if filter.ErrorSubstr != "" &&
			!strings.Contains(strings.ToLower(rec.Error), strings.ToLower(filter.ErrorSubstr)) {
			continue
		}

		playlist := rec.PlaylistName
		if playlist == "" {
			playlist = filepath.Base(filepath.Dir(rec.FilePath))
		}

		if filter.Playlist != "" && playlist != filter.Playlist {
			continue
		}

		if _, statErr := os.Stat(rec.FilePath); statErr != nil {
			p.logger.Debug("skipping vanished file",
				slog.String("path", rec.FilePath))

			continue
		}

		byPlaylist[playlist] = append(byPlaylist[playlist], rec.FilePath)
		selected++
	}

	// Deterministic batch order for output and tests.
	names := make([]string, 0, len(byPlaylist))
	for name := range byPlaylist {
		names = append(names, name)
	}

	sort.Strings(names)

	batches := make([]RetryBatch, 0, len(names))
	for _, name := range names {
		batches = append(batches, RetryBatch{PlaylistName: name, Files: byPlaylist[name]})
	}

	p.logger.Info("retry plan built",
		slog.Int("files", selected),
		slog.Int("batches", len(batches)),
	)

	return batches, nil
}

// Run executes the planned batches through the orchestrator, one batch per
// playlist so each carries its playlist override. A latched stop in one
// batch skips the remaining batches.
func (p *RetryPlanner) Run(ctx context.Context, o *Orchestrator, batches []RetryBatch, opts Options) (*Report, error) {
	combined := &Report{}

	for _, batch := range batches {
		if combined.Halted {
			for _, f := range batch.Files {
				combined.Results = append(combined.Results, FileResult{Path: f, Outcome: OutcomeHalted})
			}

			continue
		}

		batchOpts := opts
		batchOpts.PlaylistName = batch.PlaylistName
		// Rows selected for retry are failure rows; forcing past the dedup
		// check would be redundant, but the quota gate already ran once.
		batchOpts.SkipQuota = combined.Uploaded > 0 || opts.SkipQuota

		report, err := o.Run(ctx, batch.Files, batchOpts)
		if err != nil {
			return combined, err
		}

		combined.Uploaded += report.Uploaded
		combined.Skipped += report.Skipped
		combined.Failed += report.Failed
		combined.Previewed += report.Previewed
		combined.Halted = combined.Halted || report.Halted
		combined.Results = append(combined.Results, report.Results...)
	}

	return combined, nil
}
