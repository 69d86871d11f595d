package youtube

import (
	"context"
	"fmt"
)

// UploadsPlaylistID returns the id of the channel's auto-generated "uploads"
// playlist, which lists every video on the channel.
func (c *Client) UploadsPlaylistID(ctx context.Context) (string, error) {
	var resp channelListResponse
	if err := c.getJSON(ctx, "/channels?part=contentDetails&mine=true", &resp); err != nil {
		return "", fmt.Errorf("youtube: fetching channel details: %w", err)
	}

	if len(resp.Items) == 0 {
		return "", ErrSignupRequired
	}

	id := resp.Items[0].ContentDetails.RelatedPlaylists.Uploads
	if id == "" {
		return "", fmt.Errorf("youtube: channel has no uploads playlist")
	}

	return id, nil
}
