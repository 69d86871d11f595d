package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bulktube/bulktube/internal/history"
	"github.com/bulktube/bulktube/internal/youtube"
)

// RemoteLister is the API surface the comparer reads the channel through.
// youtube.Client satisfies it.
type RemoteLister interface {
	UploadsPlaylistID(ctx context.Context) (string, error)
	ListPlaylistItems(ctx context.Context, playlistID string) ([]youtube.PlaylistItem, error)
}

// SyncReport partitions local success rows against the channel's uploads
// playlist. The three sets are disjoint.
type SyncReport struct {
	// InBoth are local rows whose video still exists on the channel.
	InBoth []*history.UploadRecord
	// MissingRemote are local success rows whose video is gone from the
	// channel (deleted or claimed).
	MissingRemote []*history.UploadRecord
	// RemoteOnly are channel videos this ledger never recorded (uploaded
	// elsewhere or before this tool).
	RemoteOnly []youtube.PlaylistItem
}

// SyncComparer diffs the local ledger against the channel.
type SyncComparer struct {
	remote RemoteLister
	ledger Ledger
	logger *slog.Logger
}

// NewSyncComparer creates a comparer over the given remote and ledger.
func NewSyncComparer(remote RemoteLister, ledger Ledger, logger *slog.Logger) *SyncComparer {
	if logger == nil {
		logger = slog.Default()
	}

	return &SyncComparer{remote: remote, ledger: ledger, logger: logger}
}

// Compare fetches the channel's uploads playlist exhaustively and partitions
// local success rows into in-both, missing-remote, and remote-only.
func (c *SyncComparer) Compare(ctx context.Context) (*SyncReport, error) {
	uploadsID, err := c.remote.UploadsPlaylistID(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline: resolving uploads playlist: %w", err)
	}

	items, err := c.remote.ListPlaylistItems(ctx, uploadsID)
	if err != nil {
		return nil, fmt.Errorf("pipeline: listing channel uploads: %w", err)
	}

	remote := make(map[string]youtube.PlaylistItem, len(items))
	for _, it := range items {
		remote[it.VideoID] = it
	}

	local, err := c.ledger.AllSuccess(ctx)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	localIDs := make(map[string]bool, len(local))

	for _, rec := range local {
		localIDs[rec.VideoID] = true

		if _, ok := remote[rec.VideoID]; ok {
			report.InBoth = append(report.InBoth, rec)
		} else {
			report.MissingRemote = append(report.MissingRemote, rec)
		}
	}

	for _, it := range items {
		if !localIDs[it.VideoID] {
			report.RemoteOnly = append(report.RemoteOnly, it)
		}
	}

	c.logger.Info("sync comparison complete",
		slog.Int("in_both", len(report.InBoth)),
		slog.Int("missing_remote", len(report.MissingRemote)),
		slog.Int("remote_only", len(report.RemoteOnly)),
	)

	return report, nil
}

// FixMissingRemote deletes the local rows for videos gone from the channel,
// so their files become uploadable again. Returns (deleted, failed).
func (c *SyncComparer) FixMissingRemote(ctx context.Context, missing []*history.UploadRecord) (int, int) {
	var deleted, failed int

	for _, rec := range missing {
		ok, err := c.ledger.DeleteByVideoID(ctx, rec.VideoID)
		if err != nil {
			c.logger.Warn("could not delete stale row",
				slog.String("video_id", rec.VideoID),
				slog.String("error", err.Error()))

			failed++

			continue
		}

		if ok {
			deleted++
		}
	}

	return deleted, failed
}
