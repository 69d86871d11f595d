package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlaylistAPI serves the playlists and playlistItems endpoints from
// in-memory state.
type fakePlaylistAPI struct {
	playlists    []Playlist
	items        map[string][]PlaylistItem // playlist id -> items
	descriptions map[string]string         // playlist id -> description

	listCalls   atomic.Int32
	createCalls atomic.Int32
	nextID      atomic.Int32
}

func newFakePlaylistAPI(t *testing.T, playlists ...Playlist) (*fakePlaylistAPI, *httptest.Server) {
	t.Helper()

	api := &fakePlaylistAPI{
		playlists:    playlists,
		items:        map[string][]PlaylistItem{},
		descriptions: map[string]string{},
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if id := r.URL.Query().Get("id"); id != "" {
				api.servePlaylistByID(w, id)

				return
			}

			api.listCalls.Add(1)
			api.servePlaylistPage(w, r)
		case http.MethodPut:
			var req struct {
				ID      string         `json:"id"`
				Snippet map[string]any `json:"snippet"`
			}

			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			for i, p := range api.playlists {
				if p.ID == req.ID {
					api.playlists[i].Title, _ = req.Snippet["title"].(string)
					api.descriptions[req.ID], _ = req.Snippet["description"].(string)
				}
			}

			_, _ = w.Write([]byte(`{}`))
		case http.MethodPost:
			api.createCalls.Add(1)

			var req struct {
				Snippet struct {
					Title string `json:"title"`
				} `json:"snippet"`
				Status struct {
					PrivacyStatus string `json:"privacyStatus"`
				} `json:"status"`
			}

			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			p := Playlist{
				ID:      fmt.Sprintf("pl-%d", api.nextID.Add(1)),
				Title:   req.Snippet.Title,
				Privacy: req.Status.PrivacyStatus,
			}
			api.playlists = append(api.playlists, p)

			_ = json.NewEncoder(w).Encode(map[string]string{"id": p.ID})
		}
	})

	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req struct {
				Snippet struct {
					PlaylistID string `json:"playlistId"`
					ResourceID struct {
						VideoID string `json:"videoId"`
					} `json:"resourceId"`
				} `json:"snippet"`
			}

			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

			pid := req.Snippet.PlaylistID
			vid := req.Snippet.ResourceID.VideoID

			for _, it := range api.items[pid] {
				if it.VideoID == vid {
					w.WriteHeader(http.StatusConflict)
					_, _ = w.Write([]byte(`{"error":{"code":409,"message":"dup","errors":[{"reason":"videoAlreadyInPlaylist"}]}}`))

					return
				}
			}

			api.items[pid] = append(api.items[pid], PlaylistItem{
				ID:      fmt.Sprintf("item-%d", api.nextID.Add(1)),
				VideoID: vid,
			})

			_, _ = w.Write([]byte(`{}`))
		case http.MethodGet:
			pid := r.URL.Query().Get("playlistId")

			resp := playlistItemListResponse{}
			for _, it := range api.items[pid] {
				var item playlistItemResource
				item.ID = it.ID
				item.Snippet.ResourceID.VideoID = it.VideoID
				resp.Items = append(resp.Items, item)
			}

			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodDelete:
			id := r.URL.Query().Get("id")

			for pid, items := range api.items {
				for i, it := range items {
					if it.ID == id {
						api.items[pid] = append(items[:i], items[i+1:]...)
					}
				}
			}

			w.WriteHeader(http.StatusNoContent)
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return api, srv
}

// servePlaylistPage pages through api.playlists two at a time to exercise
// the pagination loop.
func (api *fakePlaylistAPI) servePlaylistPage(w http.ResponseWriter, r *http.Request) {
	const pageSize = 2

	start := 0
	if tok := r.URL.Query().Get("pageToken"); tok != "" {
		fmt.Sscanf(tok, "page-%d", &start)
	}

	end := start + pageSize
	if end > len(api.playlists) {
		end = len(api.playlists)
	}

	resp := playlistListResponse{}
	for _, p := range api.playlists[start:end] {
		var res playlistResource
		res.ID = p.ID
		res.Snippet.Title = p.Title
		res.Status.PrivacyStatus = p.Privacy
		res.ContentDetails.ItemCount = p.ItemCount
		resp.Items = append(resp.Items, res)
	}

	if end < len(api.playlists) {
		resp.NextPageToken = fmt.Sprintf("page-%d", end)
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// servePlaylistByID answers the single-playlist lookup used by rename with
// the full stored snippet.
func (api *fakePlaylistAPI) servePlaylistByID(w http.ResponseWriter, id string) {
	resp := map[string]any{"items": []any{}}

	for _, p := range api.playlists {
		if p.ID == id {
			resp["items"] = []any{map[string]any{
				"id": p.ID,
				"snippet": map[string]any{
					"title":       p.Title,
					"description": api.descriptions[p.ID],
				},
			}}
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}

func TestListPlaylists_Paginates(t *testing.T) {
	_, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Alpha"},
		Playlist{ID: "pl-b", Title: "Beta"},
		Playlist{ID: "pl-c", Title: "Gamma"},
		Playlist{ID: "pl-d", Title: "Delta"},
		Playlist{ID: "pl-e", Title: "Epsilon"},
	)

	client := newTestClient(t, srv.URL)

	playlists, err := client.ListPlaylists(context.Background())
	require.NoError(t, err)
	assert.Len(t, playlists, 5)
	assert.Equal(t, "Epsilon", playlists[4].Title)
}

func TestPlaylistCache_FindByName(t *testing.T) {
	api, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Holiday 2025"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	id, err := cache.FindByName(context.Background(), "Holiday 2025")
	require.NoError(t, err)
	assert.Equal(t, "pl-a", id)

	_, err = cache.FindByName(context.Background(), "Nope")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)

	// Both lookups hit the cache: one listing total.
	assert.Equal(t, int32(1), api.listCalls.Load())
	assert.Equal(t, int32(0), api.createCalls.Load())
}

func TestPlaylistCache_GetOrCreate(t *testing.T) {
	api, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Existing"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	id, err := cache.GetOrCreate(context.Background(), "Existing", "private")
	require.NoError(t, err)
	assert.Equal(t, "pl-a", id)
	assert.Equal(t, int32(0), api.createCalls.Load())

	created, err := cache.GetOrCreate(context.Background(), "Fresh", "unlisted")
	require.NoError(t, err)
	assert.NotEmpty(t, created)
	assert.Equal(t, int32(1), api.createCalls.Load())

	// Second call for the same title resolves from cache.
	again, err := cache.GetOrCreate(context.Background(), "Fresh", "unlisted")
	require.NoError(t, err)
	assert.Equal(t, created, again)
	assert.Equal(t, int32(1), api.createCalls.Load())
}

func TestPlaylistCache_AttachIdempotent(t *testing.T) {
	api, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Clips"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	require.NoError(t, cache.Attach(context.Background(), "pl-a", "vid-1"))
	require.NoError(t, cache.Attach(context.Background(), "pl-a", "vid-1"))

	assert.Len(t, api.items["pl-a"], 1)
}

func TestPlaylistCache_Detach(t *testing.T) {
	api, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Clips"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	require.NoError(t, cache.Attach(context.Background(), "pl-a", "vid-1"))
	require.NoError(t, cache.Detach(context.Background(), "pl-a", "vid-1"))
	assert.Empty(t, api.items["pl-a"])

	// Detaching a video that is not there succeeds.
	require.NoError(t, cache.Detach(context.Background(), "pl-a", "vid-ghost"))
}

func TestPlaylistCache_Resolve(t *testing.T) {
	_, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Clips"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	id, err := cache.Resolve(context.Background(), "Clips")
	require.NoError(t, err)
	assert.Equal(t, "pl-a", id)

	// Unknown names pass through as raw ids.
	raw, err := cache.Resolve(context.Background(), "PLxyz")
	require.NoError(t, err)
	assert.Equal(t, "PLxyz", raw)
}

func TestPlaylistCache_Rename(t *testing.T) {
	_, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Old Name"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	require.NoError(t, cache.Rename(context.Background(), "Old Name", "New Name"))

	id, err := cache.FindByName(context.Background(), "New Name")
	require.NoError(t, err)
	assert.Equal(t, "pl-a", id)

	_, err = cache.FindByName(context.Background(), "Old Name")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestPlaylistCache_RenameKeepsDescription(t *testing.T) {
	api, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Old Name"},
	)
	api.descriptions["pl-a"] = "Clips from the 2025 trip."

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	require.NoError(t, cache.Rename(context.Background(), "Old Name", "New Name"))

	// The snippet update carries every field, not just the title.
	assert.Equal(t, "Clips from the 2025 trip.", api.descriptions["pl-a"])
	assert.Equal(t, "New Name", api.playlists[0].Title)
}

func TestUpdatePlaylistTitle_UnknownPlaylist(t *testing.T) {
	_, srv := newFakePlaylistAPI(t)

	client := newTestClient(t, srv.URL)

	err := client.UpdatePlaylistTitle(context.Background(), "pl-ghost", "New")
	assert.ErrorIs(t, err, ErrPlaylistNotFound)
}

func TestPlaylistCache_Invalidate(t *testing.T) {
	api, srv := newFakePlaylistAPI(t,
		Playlist{ID: "pl-a", Title: "Clips"},
	)

	cache := NewPlaylistCache(newTestClient(t, srv.URL), testLogger())

	_, err := cache.FindByName(context.Background(), "Clips")
	require.NoError(t, err)

	cache.Invalidate()

	_, err = cache.FindByName(context.Background(), "Clips")
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.listCalls.Load())
}

func TestUploadsPlaylistID(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "contentDetails", r.URL.Query().Get("part"))
		_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"relatedPlaylists":{"uploads":"UUabc"}}}]}`))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	id, err := client.UploadsPlaylistID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "UUabc", id)
}

func TestUploadsPlaylistID_NoChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	_, err := client.UploadsPlaylistID(context.Background())
	assert.ErrorIs(t, err, ErrSignupRequired)
}
