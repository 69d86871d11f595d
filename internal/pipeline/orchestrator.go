package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/bulktube/bulktube/internal/meta"
	"github.com/bulktube/bulktube/internal/scan"
	"github.com/bulktube/bulktube/internal/youtube"
)

// Failure texts recorded for batch-stopping errors. These exact strings are
// what retry filters match on, so they are stable.
const (
	errTextQuota       = "Quota Exceeded"
	errTextUploadLimit = "Account Upload Limit Exceeded"
)

// Options configure one batch run.
type Options struct {
	Workers      int    // concurrent uploads, minimum 1
	DryRun       bool   // preview without uploading or recording
	PlaylistName string // override; empty selects the parent folder name
	SimpleCheck  bool   // dedup by path only, skipping the content hash
	Force        bool   // upload even when the ledger says already uploaded
	SkipQuota    bool   // bypass the pre-flight quota gate
	ChunkSize    int64  // upload chunk size; zero selects the driver default
	Privacy      string // privacy for playlists created on the fly
}

// FileResult is the terminal state of one file.
type FileResult struct {
	Path    string
	Outcome Outcome
	VideoID string
	Detail  string // failure text or skip reason
}

// Report summarizes a batch run. No per-file error escapes the worker pool;
// everything lands here and in the ledger.
type Report struct {
	Uploaded  int
	Skipped   int
	Failed    int
	Previewed int
	Halted    bool
	Results   []FileResult
}

// Orchestrator runs upload batches through a bounded worker pool.
type Orchestrator struct {
	driver    UploadDriver
	playlists PlaylistDriver
	metadata  MetadataGenerator
	ledger    Ledger
	quota     *QuotaEstimator
	sink      ProgressSink
	logger    *slog.Logger
}

// NewOrchestrator wires the pipeline. quota may be nil to disable the
// pre-flight gate; sink may be nil to discard progress.
func NewOrchestrator(
	driver UploadDriver,
	playlists PlaylistDriver,
	metadata MetadataGenerator,
	ledger Ledger,
	quota *QuotaEstimator,
	sink ProgressSink,
	logger *slog.Logger,
) *Orchestrator {
	if sink == nil {
		sink = NopSink{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		driver:    driver,
		playlists: playlists,
		metadata:  metadata,
		ledger:    ledger,
		quota:     quota,
		sink:      sink,
		logger:    logger,
	}
}

// ordinal is a file's stable position within its folder.
type ordinal struct {
	index, total int
}

// folderOrdinals assigns each file a 1-based, name-sorted position within
// its parent folder. Name order, not discovery order, keeps "No. 3/12"
// stable across runs and platforms.
func folderOrdinals(files []string) map[string]ordinal {
	byFolder := make(map[string][]string)
	for _, f := range files {
		dir := filepath.Dir(f)
		byFolder[dir] = append(byFolder[dir], f)
	}

	ords := make(map[string]ordinal, len(files))

	for _, group := range byFolder {
		sort.Slice(group, func(i, j int) bool {
			return filepath.Base(group[i]) < filepath.Base(group[j])
		})

		for i, f := range group {
			ords[f] = ordinal{index: i + 1, total: len(group)}
		}
	}

	return ords
}

// Run processes a batch of files. Per-file failures are recorded in the
// ledger and the report; only infrastructure errors (quota read) return an
// error. A quota or upload-limit failure latches a stop signal that drains
// the remaining queue as halted.
func (o *Orchestrator) Run(ctx context.Context, files []string, opts Options) (*Report, error) {
	report := &Report{}

	if len(files) == 0 {
		return report, nil
	}

	if opts.Workers < 1 {
		opts.Workers = 1
	}

	if o.quota != nil && !opts.DryRun && !opts.SkipQuota {
		est, err := o.quota.Estimate(ctx, len(files))
		if err != nil {
			return nil, err
		}

		switch est.Verdict {
		case VerdictHalt:
			o.logger.Warn("daily quota exhausted, nothing uploaded",
				slog.Int("used_today", est.UsedToday))

			report.Halted = true

			return report, nil
		case VerdictWarn:
			o.logger.Warn("batch exceeds remaining daily quota",
				slog.Int("batch", len(files)),
				slog.Int("max_uploadable", est.MaxUploadable))
		case VerdictOK:
		}
	}

	ords := folderOrdinals(files)

	var (
		stop atomic.Bool
		mu   sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for _, file := range files {
		g.Go(func() error {
			if stop.Load() || gctx.Err() != nil {
				mu.Lock()
				report.Results = append(report.Results, FileResult{Path: file, Outcome: OutcomeHalted})
				mu.Unlock()

				o.sink.FileFinished(file, OutcomeHalted, "")

				return nil
			}

			res := o.processFile(gctx, file, ords[file], opts, &stop)

			mu.Lock()
			report.Results = append(report.Results, res)

			switch res.Outcome {
			case OutcomeUploaded:
				report.Uploaded++
			case OutcomeSkipped:
				report.Skipped++
			case OutcomeFailed:
				report.Failed++
			case OutcomePreviewed:
				report.Previewed++
			case OutcomeHalted:
			}
			mu.Unlock()

			return nil
		})
	}

	// Workers never return errors; Wait only surfaces context cancellation.
	_ = g.Wait() //nolint:errcheck

	report.Halted = report.Halted || stop.Load()

	o.logger.Info("batch complete",
		slog.Int("uploaded", report.Uploaded),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
		slog.Int("previewed", report.Previewed),
		slog.Bool("halted", report.Halted),
	)

	return report, nil
}

// processFile drives one file through hash, dedup, metadata, upload, and
// post-processing.
func (o *Orchestrator) processFile(ctx context.Context, path string, ord ordinal, opts Options, stop *atomic.Bool) FileResult {
	playlist := opts.PlaylistName
	if playlist == "" {
		playlist = filepath.Base(filepath.Dir(path))
	}

	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}

	o.sink.FileStarted(path, size)

	// Path pre-check answers without reading the file.
	if !opts.Force && opts.SimpleCheck {
		uploaded, err := o.ledger.IsUploadedByPath(ctx, path)
		if err == nil && uploaded {
			o.logger.Debug("skipping, path already uploaded", slog.String("path", path))
			o.sink.FileFinished(path, OutcomeSkipped, "already uploaded")

			return FileResult{Path: path, Outcome: OutcomeSkipped, Detail: "already uploaded"}
		}
	}

	hash, hashErr := scan.FileHash(path)
	if hashErr != nil {
		detail := hashErr.Error()
		o.logger.Warn("hashing failed", slog.String("path", path), slog.String("error", detail))

		if !opts.DryRun {
			if recErr := o.ledger.RecordFailure(ctx, path, scan.PathHash(path), detail, playlist, size); recErr != nil {
				o.logger.Error("recording hash failure", slog.String("error", recErr.Error()))
			}
		}

		o.sink.FileFinished(path, OutcomeFailed, detail)

		return FileResult{Path: path, Outcome: OutcomeFailed, Detail: detail}
	}

	if !opts.Force && !opts.SimpleCheck {
		uploaded, err := o.ledger.IsUploaded(ctx, hash)
		if err != nil {
			o.logger.Warn("dedup check failed, proceeding with upload",
				slog.String("path", path), slog.String("error", err.Error()))
		} else if uploaded {
			o.logger.Debug("skipping, content already uploaded",
				slog.String("path", path), slog.String("hash", hash))
			o.sink.FileFinished(path, OutcomeSkipped, "already uploaded")

			return FileResult{Path: path, Outcome: OutcomeSkipped, Detail: "already uploaded"}
		}
	}

	metadata := o.metadata.Generate(path, ord.index, ord.total)

	if opts.DryRun {
		o.sink.FileFinished(path, OutcomePreviewed, metadata.Snippet.Title)

		return FileResult{Path: path, Outcome: OutcomePreviewed, Detail: metadata.Snippet.Title}
	}

	videoID, upErr := o.driver.UploadVideo(ctx, path, metadata, opts.ChunkSize, func(sent, total int64) {
		o.sink.FileProgress(path, sent, total)
	})
	if upErr != nil {
		detail := failureText(upErr)

		if youtube.IsTerminal(upErr) {
			stop.Store(true)
			o.logger.Error("terminal platform error, stopping batch",
				slog.String("path", path), slog.String("error", detail))
		}

		if ctx.Err() != nil && !youtube.IsTerminal(upErr) {
			// Cancellation mid-upload: leave no failure row, the file was
			// never fully considered.
			o.sink.FileFinished(path, OutcomeHalted, "")

			return FileResult{Path: path, Outcome: OutcomeHalted}
		}

		if recErr := o.ledger.RecordFailure(ctx, path, hash, detail, playlist, size); recErr != nil {
			o.logger.Error("recording upload failure", slog.String("error", recErr.Error()))
		}

		o.sink.FileFinished(path, OutcomeFailed, detail)

		return FileResult{Path: path, Outcome: OutcomeFailed, Detail: detail}
	}

	// Post-processing order is deliberate: the success row commits first so
	// an interruption can only lose a playlist entry or thumbnail, never
	// re-upload a published video.
	if recErr := o.ledger.RecordSuccess(ctx, path, hash, videoID, meta.MetadataJSON(metadata), playlist, size); recErr != nil {
		o.logger.Error("recording upload success",
			slog.String("path", path), slog.String("error", recErr.Error()))
	}

	o.attachPlaylist(ctx, playlist, videoID, opts.Privacy)
	o.attachThumbnail(ctx, path, videoID)

	o.sink.FileFinished(path, OutcomeUploaded, videoID)

	return FileResult{Path: path, Outcome: OutcomeUploaded, VideoID: videoID}
}

// attachPlaylist adds the video to its playlist, creating the playlist when
// needed. Best-effort: the upload already succeeded and is recorded.
func (o *Orchestrator) attachPlaylist(ctx context.Context, playlist, videoID, privacy string) {
	if o.playlists == nil || playlist == "" {
		return
	}

	playlistID, err := o.playlists.GetOrCreate(ctx, playlist, privacy)
	if err != nil {
		o.logger.Warn("playlist lookup failed",
			slog.String("playlist", playlist), slog.String("error", err.Error()))

		return
	}

	if err := o.playlists.Attach(ctx, playlistID, videoID); err != nil {
		o.logger.Warn("playlist attach failed",
			slog.String("playlist", playlist),
			slog.String("video_id", videoID),
			slog.String("error", err.Error()))
	}
}

// attachThumbnail uploads a sibling image as the video thumbnail when one
// exists. Best-effort.
func (o *Orchestrator) attachThumbnail(ctx context.Context, path, videoID string) {
	thumb := scan.Thumbnail(path)
	if thumb == "" {
		return
	}

	if err := o.driver.SetThumbnail(ctx, videoID, thumb); err != nil {
		o.logger.Warn("thumbnail upload failed",
			slog.String("image", thumb),
			slog.String("video_id", videoID),
			slog.String("error", err.Error()))
	}
}

// failureText maps an upload error to the text recorded in the ledger.
// Terminal classifications get fixed texts that retry filters match on.
func failureText(err error) string {
	switch {
	case errors.Is(err, youtube.ErrQuotaExceeded):
		return errTextQuota
	case errors.Is(err, youtube.ErrUploadLimit):
		return errTextUploadLimit
	default:
		return fmt.Sprintf("%v", err)
	}
}
