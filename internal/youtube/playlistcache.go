package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// PlaylistCache maintains a lazy title-to-id map over the channel's playlists
// so repeated lookups in a batch cost one exhaustive listing, not one API
// round-trip per file. Safe for concurrent use.
type PlaylistCache struct {
	client *Client
	logger *slog.Logger

	mu     sync.Mutex
	byName map[string]string // title -> playlist id
	loaded bool
}

// NewPlaylistCache creates an empty cache over the given client. The first
// lookup populates it.
func NewPlaylistCache(client *Client, logger *slog.Logger) *PlaylistCache {
	if logger == nil {
		logger = slog.Default()
	}

	return &PlaylistCache{
		client: client,
		logger: logger,
		byName: make(map[string]string),
	}
}

// ensure populates the cache on first use. Callers must hold c.mu.
func (c *PlaylistCache) ensure(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	playlists, err := c.client.ListPlaylists(ctx)
	if err != nil {
		return err
	}

	for _, p := range playlists {
		c.byName[p.Title] = p.ID
	}

	c.loaded = true
	c.logger.Debug("playlist cache populated", slog.Int("count", len(playlists)))

	return nil
}

// FindByName returns the id of the playlist with the given title, or
// ErrPlaylistNotFound. Never creates anything: lookup paths (sync, retry
// filters, listings) must not leave new playlists behind.
func (c *PlaylistCache) FindByName(ctx context.Context, title string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(ctx); err != nil {
		return "", err
	}

	id, ok := c.byName[title]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrPlaylistNotFound, title)
	}

	return id, nil
}

// GetOrCreate returns the id of the playlist with the given title, creating
// it with the given privacy when absent. Two concurrent creators can race on
// the remote side; the later cache write wins and at worst one empty
// playlist is orphaned.
func (c *PlaylistCache) GetOrCreate(ctx context.Context, title, privacy string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(ctx); err != nil {
		return "", err
	}

	if id, ok := c.byName[title]; ok {
		return id, nil
	}

	id, err := c.client.CreatePlaylist(ctx, title, privacy)
	if err != nil {
		return "", err
	}

	c.byName[title] = id

	return id, nil
}

// Attach adds a video to a playlist. Attaching a video that is already in
// the playlist reports success, making attachment idempotent for retries.
func (c *PlaylistCache) Attach(ctx context.Context, playlistID, videoID string) error {
	err := c.client.InsertPlaylistItem(ctx, playlistID, videoID)
	if errors.Is(err, ErrAlreadyInPlaylist) || errors.Is(err, ErrConflict) {
		c.logger.Debug("video already in playlist",
			slog.String("playlist_id", playlistID),
			slog.String("video_id", videoID),
		)

		return nil
	}

	return err
}

// Detach removes a video from a playlist by finding its playlist-item entry
// first. Removing a video that is not in the playlist reports success.
func (c *PlaylistCache) Detach(ctx context.Context, playlistID, videoID string) error {
	items, err := c.client.ListPlaylistItems(ctx, playlistID)
	if err != nil {
		return err
	}

	for _, it := range items {
		if it.VideoID == videoID {
			return c.client.DeletePlaylistItem(ctx, it.ID)
		}
	}

	return nil
}

// Rename changes a playlist's title, accepting either the current title or a
// raw playlist id. The cache entry moves to the new title.
func (c *PlaylistCache) Rename(ctx context.Context, nameOrID, newTitle string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(ctx); err != nil {
		return err
	}

	id, ok := c.byName[nameOrID]
	oldTitle := nameOrID

	if !ok {
		// Treat the argument as a raw id.
		id = nameOrID
		oldTitle = ""

		for title, cachedID := range c.byName {
			if cachedID == id {
				oldTitle = title
				break
			}
		}
	}

	if err := c.client.UpdatePlaylistTitle(ctx, id, newTitle); err != nil {
		return err
	}

	if oldTitle != "" {
		delete(c.byName, oldTitle)
	}

	c.byName[newTitle] = id

	return nil
}

// Resolve maps a playlist title or raw id to an id without creating
// anything. Unknown names fall through as raw ids.
func (c *PlaylistCache) Resolve(ctx context.Context, nameOrID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensure(ctx); err != nil {
		return "", err
	}

	if id, ok := c.byName[nameOrID]; ok {
		return id, nil
	}

	return nameOrID, nil
}

// Invalidate drops the cached listing so the next lookup refetches.
func (c *PlaylistCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byName = make(map[string]string)
	c.loaded = false
}
