// Package pipeline orchestrates batch uploads: dedup against the history
// ledger, quota gating, bounded-worker dispatch, and post-upload playlist
// and thumbnail handling.
package pipeline

import (
	"context"

	"github.com/bulktube/bulktube/internal/history"
	"github.com/bulktube/bulktube/internal/youtube"
)

// UploadDriver is the subset of the API client the orchestrator uploads
// through. youtube.Client satisfies it; tests substitute fakes.
type UploadDriver interface {
	UploadVideo(ctx context.Context, path string, meta *youtube.VideoMetadata, chunkSize int64, progress youtube.ProgressFunc) (string, error)
	SetThumbnail(ctx context.Context, videoID, imagePath string) error
}

// PlaylistDriver attaches published videos to playlists.
// youtube.PlaylistCache satisfies it.
type PlaylistDriver interface {
	GetOrCreate(ctx context.Context, title, privacy string) (string, error)
	Attach(ctx context.Context, playlistID, videoID string) error
}

// MetadataGenerator builds per-file upload metadata. meta.Builder satisfies it.
type MetadataGenerator interface {
	Generate(path string, index, total int) *youtube.VideoMetadata
}

// Ledger is the history store surface the pipeline reads and writes.
type Ledger interface {
	IsUploaded(ctx context.Context, hash string) (bool, error)
	IsUploadedByPath(ctx context.Context, path string) (bool, error)
	RecordSuccess(ctx context.Context, path, hash, videoID, metadata, playlist string, size int64) error
	RecordFailure(ctx context.Context, path, hash, errText, playlist string, size int64) error
	CountSuccessSince(ctx context.Context, since int64) (int, error)
	Failed(ctx context.Context) ([]*history.UploadRecord, error)
	AllSuccess(ctx context.Context) ([]*history.UploadRecord, error)
	DeleteByVideoID(ctx context.Context, videoID string) (bool, error)
}

// Outcome is the terminal state of one file in a batch.
type Outcome string

const (
	OutcomeUploaded  Outcome = "uploaded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
	OutcomePreviewed Outcome = "previewed"
	OutcomeHalted    Outcome = "halted"
)

// ProgressSink receives batch progress events. Implementations must tolerate
// concurrent calls from multiple workers. The CLI renders progress bars from
// these; tests record them.
type ProgressSink interface {
	FileStarted(path string, size int64)
	FileProgress(path string, sent, total int64)
	FileFinished(path string, outcome Outcome, detail string)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) FileStarted(string, int64)            {}
func (NopSink) FileProgress(string, int64, int64)    {}
func (NopSink) FileFinished(string, Outcome, string) {}
