package youtube

// Video metadata types for API JSON serialization. Field names follow the
// YouTube Data API v3 resource shapes.

// Snippet is the title/description/tags portion of a video resource.
type Snippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
	CategoryID  string   `json:"categoryId,omitempty"`
}

// Status carries the privacy setting of a video.
type Status struct {
	PrivacyStatus           string `json:"privacyStatus"`
	SelfDeclaredMadeForKids *bool  `json:"selfDeclaredMadeForKids,omitempty"`
}

// GeoPoint is a recording location.
type GeoPoint struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty"`
}

// RecordingDetails carries capture time and location.
type RecordingDetails struct {
	RecordingDate string    `json:"recordingDate,omitempty"` // RFC3339 UTC
	Location      *GeoPoint `json:"location,omitempty"`
}

// VideoMetadata is the request body for video insertion and the parsed
// response for video reads.
type VideoMetadata struct {
	ID               string            `json:"id,omitempty"`
	Snippet          *Snippet          `json:"snippet,omitempty"`
	Status           *Status           `json:"status,omitempty"`
	RecordingDetails *RecordingDetails `json:"recordingDetails,omitempty"`
}

// Playlist is a single playlist as returned by the playlists endpoint.
type Playlist struct {
	ID        string
	Title     string
	ItemCount int64
	Privacy   string
}

// PlaylistItem is a single entry of a playlist.
type PlaylistItem struct {
	ID       string // playlist item id, needed for removal
	VideoID  string
	Title    string
	Position int64
}

// --- wire shapes ---

type playlistListResponse struct {
	NextPageToken string             `json:"nextPageToken"`
	Items         []playlistResource `json:"items"`
}

type playlistResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title string `json:"title"`
	} `json:"snippet"`
	Status struct {
		PrivacyStatus string `json:"privacyStatus"`
	} `json:"status"`
	ContentDetails struct {
		ItemCount int64 `json:"itemCount"`
	} `json:"contentDetails"`
}

type playlistItemListResponse struct {
	NextPageToken string                 `json:"nextPageToken"`
	Items         []playlistItemResource `json:"items"`
}

type playlistItemResource struct {
	ID      string `json:"id"`
	Snippet struct {
		Title      string `json:"title"`
		Position   int64  `json:"position"`
		ResourceID struct {
			VideoID string `json:"videoId"`
		} `json:"resourceId"`
	} `json:"snippet"`
}

type channelListResponse struct {
	Items []struct {
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []VideoMetadata `json:"items"`
}
