package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// playlistPageSize is the maximum page size the playlists and playlistItems
// endpoints accept.
const playlistPageSize = 50

// ListPlaylists pages through all playlists owned by the authenticated
// channel. Pagination is exhaustive: a playlist on page three is as real as
// one on page one.
func (c *Client) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	var out []Playlist

	pageToken := ""
	for {
		path := fmt.Sprintf("/playlists?part=snippet,status,contentDetails&mine=true&maxResults=%d", playlistPageSize)
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page playlistListResponse
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("youtube: listing playlists: %w", err)
		}

		for _, p := range page.Items {
			out = append(out, Playlist{
				ID:        p.ID,
				Title:     p.Snippet.Title,
				ItemCount: p.ContentDetails.ItemCount,
				Privacy:   p.Status.PrivacyStatus,
			})
		}

		if page.NextPageToken == "" {
			return out, nil
		}

		pageToken = page.NextPageToken
	}
}

// CreatePlaylist creates a new playlist and returns its id.
func (c *Client) CreatePlaylist(ctx context.Context, title, privacy string) (string, error) {
	c.logger.Info("creating playlist",
		slog.String("title", title),
		slog.String("privacy", privacy),
	)

	req := map[string]any{
		"snippet": map[string]string{"title": title},
		"status":  map[string]string{"privacyStatus": privacy},
	}

	var resp playlistResource
	if err := c.postJSON(ctx, http.MethodPost, "/playlists?part=snippet,status", req, &resp); err != nil {
		return "", fmt.Errorf("youtube: creating playlist %q: %w", title, err)
	}

	return resp.ID, nil
}

// InsertPlaylistItem appends a video to a playlist.
func (c *Client) InsertPlaylistItem(ctx context.Context, playlistID, videoID string) error {
	req := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": map[string]string{
				"kind":    "youtube#video",
				"videoId": videoID,
			},
		},
	}

	if err := c.postJSON(ctx, http.MethodPost, "/playlistItems?part=snippet", req, nil); err != nil {
		return fmt.Errorf("youtube: inserting %s into playlist %s: %w", videoID, playlistID, err)
	}

	return nil
}

// ListPlaylistItems pages through all entries of a playlist.
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	var out []PlaylistItem

	pageToken := ""
	for {
		path := fmt.Sprintf("/playlistItems?part=snippet&playlistId=%s&maxResults=%d",
			url.QueryEscape(playlistID), playlistPageSize)
		if pageToken != "" {
			path += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var page playlistItemListResponse
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("youtube: listing items of playlist %s: %w", playlistID, err)
		}

		for _, it := range page.Items {
			out = append(out, PlaylistItem{
				ID:       it.ID,
				VideoID:  it.Snippet.ResourceID.VideoID,
				Title:    it.Snippet.Title,
				Position: it.Snippet.Position,
			})
		}

		if page.NextPageToken == "" {
			return out, nil
		}

		pageToken = page.NextPageToken
	}
}

// DeletePlaylistItem removes a playlist entry by its playlist-item id.
func (c *Client) DeletePlaylistItem(ctx context.Context, itemID string) error {
	resp, err := c.Do(ctx, http.MethodDelete, "/playlistItems?id="+url.QueryEscape(itemID), nil)
	if err != nil {
		return fmt.Errorf("youtube: deleting playlist item %s: %w", itemID, err)
	}
	resp.Body.Close()

	return nil
}

// fetchPlaylistSnippet retrieves a playlist's snippet part as a raw map so
// an update can send every field back unchanged.
func (c *Client) fetchPlaylistSnippet(ctx context.Context, playlistID string) (map[string]any, error) {
	path := "/playlists?part=snippet&id=" + url.QueryEscape(playlistID)

	var resp struct {
		Items []struct {
			Snippet map[string]any `json:"snippet"`
		} `json:"items"`
	}

	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("youtube: fetching playlist %s: %w", playlistID, err)
	}

	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("youtube: playlist %s: %w", playlistID, ErrPlaylistNotFound)
	}

	return resp.Items[0].Snippet, nil
}

// UpdatePlaylistTitle renames a playlist. An update replaces the whole
// snippet part, so the current snippet is fetched first and sent back with
// only the title changed.
func (c *Client) UpdatePlaylistTitle(ctx context.Context, playlistID, title string) error {
	c.logger.Info("renaming playlist",
		slog.String("playlist_id", playlistID),
		slog.String("title", title),
	)

	snippet, err := c.fetchPlaylistSnippet(ctx, playlistID)
	if err != nil {
		return err
	}
	snippet["title"] = title

	req := map[string]any{
		"id":      playlistID,
		"snippet": snippet,
	}

	if err := c.postJSON(ctx, http.MethodPut, "/playlists?part=snippet", req, nil); err != nil {
		return fmt.Errorf("youtube: renaming playlist %s: %w", playlistID, err)
	}

	return nil
}
