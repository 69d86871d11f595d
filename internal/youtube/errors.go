// Package youtube provides an HTTP client for the YouTube Data API with
// automatic retry, resumable uploads, and error classification.
package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for API error classification.
// Use errors.Is(err, youtube.ErrQuotaExceeded) to check.
var (
	ErrBadRequest         = errors.New("youtube: bad request")
	ErrUnauthorized       = errors.New("youtube: unauthorized")
	ErrForbidden          = errors.New("youtube: forbidden")
	ErrNotFound           = errors.New("youtube: not found")
	ErrConflict           = errors.New("youtube: conflict")
	ErrServerError        = errors.New("youtube: server error")
	ErrQuotaExceeded      = errors.New("youtube: daily quota exceeded")
	ErrUploadLimit        = errors.New("youtube: account upload limit exceeded")
	ErrSignupRequired     = errors.New("youtube: channel signup required")
	ErrAlreadyInPlaylist  = errors.New("youtube: video already in playlist")
	ErrPlaylistNotFound   = errors.New("youtube: playlist not found")
	ErrNotLoggedIn        = errors.New("youtube: not logged in (run 'bulktube auth login' first)")
	ErrSessionInterrupted = errors.New("youtube: upload session interrupted")
)

// APIError wraps a sentinel error with the HTTP status code, the API error
// reason, and the error message body for debugging.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("youtube: HTTP %d (%s): %s", e.StatusCode, e.Reason, e.Message)
	}

	return fmt.Sprintf("youtube: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// errorBody is the JSON error envelope returned by the API.
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// parseAPIError builds an APIError from a non-2xx response body.
// The reason, when present, takes precedence over the bare status code
// because the API reuses 403 for both permission and quota failures.
func parseAPIError(statusCode int, body []byte) *APIError {
	var eb errorBody

	reason := ""
	message := string(body)

	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Code != 0 {
		message = eb.Error.Message
		if len(eb.Error.Errors) > 0 {
			reason = eb.Error.Errors[0].Reason
		}
	}

	return &APIError{
		StatusCode: statusCode,
		Reason:     reason,
		Message:    message,
		Err:        classify(statusCode, reason),
	}
}

// classify maps a status code and API reason to a sentinel error.
// Returns nil for 2xx success codes.
func classify(code int, reason string) error {
	switch reason {
	case "quotaExceeded", "dailyLimitExceeded":
		return ErrQuotaExceeded
	case "uploadLimitExceeded":
		return ErrUploadLimit
	case "youtubeSignupRequired":
		return ErrSignupRequired
	case "videoAlreadyInPlaylist":
		return ErrAlreadyInPlaylist
	case "playlistNotFound":
		return ErrPlaylistNotFound
	}

	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
// Quota and upload-limit failures carry retryable-looking codes (403, 400)
// but never pass through here because they are classified before the retry
// decision by IsTerminal.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether err carries a classification that must stop the
// whole batch rather than just the current file.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrUploadLimit)
}
