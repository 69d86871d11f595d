package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultChunkSize is the resumable upload chunk size (4 MiB). All chunks
// except the final one are exactly this long.
const DefaultChunkSize = 4 * 1024 * 1024

// UploadSession holds the session URL returned by the resumable upload
// initiation request. The URL is pre-authenticated for this one upload.
type UploadSession struct {
	URL string
}

// ProgressFunc receives upload progress after each accepted chunk.
type ProgressFunc func(sent, total int64)

// CreateUploadSession initiates a resumable upload for a video of the given
// size. The returned session URL accepts the file bytes via UploadChunk.
func (c *Client) CreateUploadSession(ctx context.Context, meta *VideoMetadata, size int64) (*UploadSession, error) {
	title := ""
	if meta.Snippet != nil {
		title = meta.Snippet.Title
	}

	c.logger.Info("creating upload session",
		slog.String("title", title),
		slog.Int64("size", size),
	)

	body, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("youtube: marshaling video metadata: %w", err)
	}

	url := c.uploadURL + "/videos?uploadType=resumable&part=snippet,status,recordingDetails"

	var attempt int
	for {
		resp, doErr := c.createSessionOnce(ctx, url, body, size)
		if doErr == nil {
			return resp, nil
		}

		if !retryableErr(doErr) || attempt >= c.retryCount {
			return nil, doErr
		}

		backoff := c.calcBackoff(attempt)
		c.logger.Warn("retrying upload session creation",
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", doErr.Error()),
		)

		if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
			return nil, fmt.Errorf("youtube: request canceled: %w", sleepErr)
		}

		attempt++
	}
}

func (c *Client) createSessionOnce(ctx context.Context, url string, body []byte, size int64) (*UploadSession, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("youtube: creating session request: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("youtube: obtaining token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Upload-Content-Length", fmt.Sprintf("%d", size))
	req.Header.Set("X-Upload-Content-Type", "video/*")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: upload session request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		return nil, parseAPIError(resp.StatusCode, errBody)
	}

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain to reuse connection

	loc := resp.Header.Get("Location")
	if loc == "" {
		return nil, fmt.Errorf("youtube: upload session response missing Location header")
	}

	return &UploadSession{URL: loc}, nil
}

// UploadChunk sends one chunk of file data to an upload session. Returns the
// video id on the final chunk (200/201) and "" for intermediate chunks (308).
// offset is the byte offset, total the full file size. The session URL is
// pre-authenticated, so no Authorization header is sent.
func (c *Client) UploadChunk(ctx context.Context, session *UploadSession, chunk []byte, offset, total int64) (string, error) {
	contentRange := fmt.Sprintf("bytes %d-%d/%d", offset, offset+int64(len(chunk))-1, total)

	c.logger.Debug("uploading chunk",
		slog.Int64("offset", offset),
		slog.Int("length", len(chunk)),
		slog.Int64("total", total),
	)

	var attempt int
	for {
		videoID, err := c.uploadChunkOnce(ctx, session, chunk, contentRange)
		if err == nil {
			return videoID, nil
		}

		if ctx.Err() != nil {
			return "", fmt.Errorf("youtube: request canceled: %w", ctx.Err())
		}

		if !retryableErr(err) || attempt >= c.retryCount {
			return "", err
		}

		backoff := c.calcBackoff(attempt)
		c.logger.Warn("retrying chunk upload",
			slog.Int64("offset", offset),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		if sleepErr := c.sleepFunc(ctx, backoff); sleepErr != nil {
			return "", fmt.Errorf("youtube: request canceled: %w", sleepErr)
		}

		attempt++
	}
}

func (c *Client) uploadChunkOnce(ctx context.Context, session *UploadSession, chunk []byte, contentRange string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, session.URL, bytes.NewReader(chunk))
	if err != nil {
		return "", fmt.Errorf("youtube: creating chunk request: %w", err)
	}

	req.Header.Set("Content-Range", contentRange)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("User-Agent", userAgent)
	req.ContentLength = int64(len(chunk))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("youtube: chunk request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPermanentRedirect:
		// 308 Resume Incomplete, chunk accepted, more expected.
		if _, drainErr := io.Copy(io.Discard, resp.Body); drainErr != nil {
			return "", fmt.Errorf("youtube: draining chunk response: %w", drainErr)
		}

		return "", nil

	case http.StatusOK, http.StatusCreated:
		var vm VideoMetadata
		if decErr := json.NewDecoder(resp.Body).Decode(&vm); decErr != nil {
			return "", fmt.Errorf("youtube: decoding final chunk response: %w", decErr)
		}

		if vm.ID == "" {
			return "", fmt.Errorf("youtube: final chunk response missing video id")
		}

		return vm.ID, nil

	default:
		errBody, _ := io.ReadAll(resp.Body) //nolint:errcheck // best-effort read for error message
		return "", parseAPIError(resp.StatusCode, errBody)
	}
}

// UploadVideo uploads a file through a resumable session, cutting it into
// chunkSize pieces with classified per-chunk retry. progress may be nil.
// Returns the id of the published video.
func (c *Client) UploadVideo(ctx context.Context, path string, meta *VideoMetadata, chunkSize int64, progress ProgressFunc) (string, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("youtube: opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("youtube: stat %s: %w", path, err)
	}

	total := info.Size()
	if total == 0 {
		return "", fmt.Errorf("youtube: %s is empty", path)
	}

	session, err := c.CreateUploadSession(ctx, meta, total)
	if err != nil {
		return "", err
	}

	c.logger.Info("upload session ready",
		slog.String("path", path),
		slog.Int64("size", total),
	)

	buf := make([]byte, chunkSize)

	var offset int64
	for offset < total {
		n, readErr := io.ReadFull(f, buf)
		if readErr != nil && readErr != io.ErrUnexpectedEOF {
			return "", fmt.Errorf("youtube: reading %s at offset %d: %w", path, offset, readErr)
		}

		videoID, upErr := c.UploadChunk(ctx, session, buf[:n], offset, total)
		if upErr != nil {
			return "", upErr
		}

		offset += int64(n)

		if progress != nil {
			progress(offset, total)
		}

		if offset >= total {
			if videoID == "" {
				return "", ErrSessionInterrupted
			}

			c.logger.Info("upload complete",
				slog.String("path", path),
				slog.String("video_id", videoID),
			)

			return videoID, nil
		}
	}

	return "", ErrSessionInterrupted
}

// SetThumbnail uploads a custom thumbnail image for a video.
func (c *Client) SetThumbnail(ctx context.Context, videoID, imagePath string) error {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("youtube: reading thumbnail %s: %w", imagePath, err)
	}

	contentType := "image/jpeg"
	if strings.EqualFold(filepath.Ext(imagePath), ".png") {
		contentType = "image/png"
	}

	c.logger.Info("setting thumbnail",
		slog.String("video_id", videoID),
		slog.String("image", imagePath),
	)

	url := c.uploadURL + "/thumbnails/set?videoId=" + videoID

	resp, err := c.do(ctx, http.MethodPost, url, contentType, data)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain to reuse connection

	return nil
}

// retryableErr reports whether err is worth another attempt: network faults
// and APIErrors with retryable status codes, except terminal quota errors.
func retryableErr(err error) bool {
	if IsTerminal(err) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isRetryable(apiErr.StatusCode)
	}

	// Non-API errors here are transport failures.
	return true
}
