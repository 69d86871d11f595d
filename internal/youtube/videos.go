package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
)

// PrivacyStatuses are the privacy settings the API accepts.
var PrivacyStatuses = []string{"public", "private", "unlisted"}

// ValidPrivacy reports whether s is an accepted privacy status.
func ValidPrivacy(s string) bool {
	return slices.Contains(PrivacyStatuses, s)
}

// GetVideo fetches snippet and status for a single video.
// Returns (nil, nil) when the video does not exist.
func (c *Client) GetVideo(ctx context.Context, videoID string) (*VideoMetadata, error) {
	path := "/videos?part=snippet,status&id=" + url.QueryEscape(videoID)

	var resp videoListResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("youtube: fetching video %s: %w", videoID, err)
	}

	if len(resp.Items) == 0 {
		return nil, nil
	}

	return &resp.Items[0], nil
}

// UpdatePrivacy changes the privacy status of a published video.
func (c *Client) UpdatePrivacy(ctx context.Context, videoID, privacy string) error {
	if !ValidPrivacy(privacy) {
		return fmt.Errorf("youtube: invalid privacy status %q (want public, private, or unlisted)", privacy)
	}

	c.logger.Info("updating video privacy",
		slog.String("video_id", videoID),
		slog.String("privacy", privacy),
	)

	req := map[string]any{
		"id":     videoID,
		"status": map[string]string{"privacyStatus": privacy},
	}

	if err := c.postJSON(ctx, http.MethodPut, "/videos?part=status", req, nil); err != nil {
		return fmt.Errorf("youtube: updating privacy of %s: %w", videoID, err)
	}

	return nil
}
