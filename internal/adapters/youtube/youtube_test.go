package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewClient("test-token", Config{BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func videosHandler(t *testing.T, durations map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var items []interface{}
		for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
			if d, ok := durations[id]; ok {
				items = append(items, map[string]interface{}{"id": id, "contentDetails": map[string]string{"duration": d}})
			}
		}
		writeJSON(t, w, map[string]interface{}{"items": items})
	}
}

func TestParseVideoTitle(t *testing.T) {
	tests := []struct {
		input  string
		name   string
		artist string
	}{
		{"Queen - Bohemian Rhapsody (Official Video)", "Bohemian Rhapsody (Official Video)", "Queen"},
		{"Daft Punk - Get Lucky", "Get Lucky", "Daft Punk"},
		{"Just A Song Title", "Just A Song Title", ""},
		{"Artist - Song - Live", "Song - Live", "Artist"},
		{" - Untitled", "- Untitled", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, artist := parseVideoTitle(tt.input)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.artist, artist)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := map[string]int{
		"PT3M34S":   214,
		"PT1H2M3S":  3723,
		"PT45S":     45,
		"PT10M":     600,
		"P1DT1S":    86401,
		"P0D":       0,
		"":          0,
		"3M":        0,
		"PTM":       0,
		"PT5":       0,
		"PT1M30.5S": 0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseDuration(in), in)
	}
}

func TestClient_GetPlaylistTracks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "yt1", r.URL.Query().Get("playlistId"))
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(t, w, map[string]interface{}{
				"items": []interface{}{
					map[string]interface{}{"snippet": map[string]interface{}{
						"title":                  "Queen - Bohemian Rhapsody (Official Video)",
						"videoOwnerChannelTitle": "Queen Official",
						"resourceId":             map[string]string{"videoId": "v1"},
					}},
					map[string]interface{}{"snippet": map[string]interface{}{
						"title":      "Deleted video",
						"resourceId": map[string]string{},
					}},
				},
				"nextPageToken": "page2",
			})
			return
		}
		writeJSON(t, w, map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"snippet": map[string]interface{}{
					"title":                  "Don&#39;t Stop Me Now",
					"videoOwnerChannelTitle": "Queen - Topic",
					"resourceId":             map[string]string{"videoId": "v2"},
				}},
			},
		})
	})
	mux.HandleFunc("/videos", videosHandler(t, map[string]string{"v1": "PT5M55S", "v2": "PT3M29S"}))
	c := setupServer(t, mux)

	tracks, err := c.GetPlaylistTracks(context.Background(), "yt1")
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.Equal(t, domain.Track{
		Title:           "Bohemian Rhapsody (Official Video)",
		Artist:          "Queen",
		DurationSeconds: 355,
		PlatformID:      "v1",
		Platform:        domain.PlatformYouTube,
	}, tracks[0])
	assert.Equal(t, "Don't Stop Me Now", tracks[1].Title)
	assert.Equal(t, "Queen - Topic", tracks[1].Artist)
	assert.Equal(t, 209, tracks[1].DurationSeconds)
}

func TestClient_SearchTracks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "video", q.Get("type"))
		assert.Equal(t, musicCategory, q.Get("videoCategoryId"))
		assert.Equal(t, "8", q.Get("maxResults"))
		assert.Equal(t, "levitating dua lipa", q.Get("q"))
		writeJSON(t, w, map[string]interface{}{
			"items": []interface{}{
				map[string]interface{}{"id": map[string]string{"videoId": "v9"}, "snippet": map[string]string{
					"title": "Dua Lipa - Levitating (Official Music Video)", "channelTitle": "Dua Lipa",
				}},
				map[string]interface{}{"id": map[string]string{"channelId": "c1"}, "snippet": map[string]string{"title": "a channel"}},
			},
		})
	})
	mux.HandleFunc("/videos", videosHandler(t, map[string]string{"v9": "PT3M23S"}))
	c := setupServer(t, mux)

	tracks, err := c.SearchTracks(context.Background(), "levitating dua lipa", 8)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "v9", tracks[0].PlatformID)
	assert.Equal(t, "Dua Lipa", tracks[0].Artist)
	assert.Equal(t, 203, tracks[0].DurationSeconds)
}

func TestClient_AddTracksReportsPartialProgress(t *testing.T) {
	var inserted []string
	mux := http.NewServeMux()
	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body struct {
			Snippet struct {
				PlaylistID string `json:"playlistId"`
				ResourceID struct {
					VideoID string `json:"videoId"`
				} `json:"resourceId"`
			} `json:"snippet"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "pl", body.Snippet.PlaylistID)

		if body.Snippet.ResourceID.VideoID == "bad" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		inserted = append(inserted, body.Snippet.ResourceID.VideoID)
		writeJSON(t, w, map[string]string{"id": "item"})
	})
	c := setupServer(t, mux)

	n, err := c.AddTracks(context.Background(), "pl", []string{"a", "b", "bad", "c"})
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, domain.ErrTransientNetwork)
	assert.Equal(t, []string{"a", "b"}, inserted)

	n, err = c.AddTracks(context.Background(), "pl", []string{"c"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestClient_CreateAndGetPlaylist(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/playlists", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var body struct {
				Snippet map[string]string `json:"snippet"`
				Status  map[string]string `json:"status"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Chill Vibes", body.Snippet["title"])
			assert.Equal(t, "private", body.Status["privacyStatus"])
			writeJSON(t, w, map[string]interface{}{"id": "PLnew", "snippet": map[string]string{"title": "Chill Vibes"}})
			return
		}
		if r.URL.Query().Get("id") == "PLnew" {
			writeJSON(t, w, map[string]interface{}{"items": []interface{}{
				map[string]interface{}{"id": "PLnew", "snippet": map[string]string{"title": "Chill Vibes"}, "contentDetails": map[string]int{"itemCount": 3}},
			}})
			return
		}
		writeJSON(t, w, map[string]interface{}{"items": []interface{}{}})
	})
	c := setupServer(t, mux)

	ref, err := c.CreatePlaylist(context.Background(), "Chill Vibes", "desc")
	require.NoError(t, err)
	assert.Equal(t, "PLnew", ref.ID)

	got, err := c.GetPlaylist(context.Background(), "PLnew")
	require.NoError(t, err)
	assert.Equal(t, domain.PlaylistRef{Platform: domain.PlatformYouTube, ID: "PLnew", DisplayName: "Chill Vibes", TrackCount: 3}, got)

	_, err = c.GetPlaylist(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_QuotaExceededIsRateLimited(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"errors":[{"reason":"quotaExceeded"}]}}`)
	})
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"errors":[{"reason":"forbidden"}]}}`)
	})
	c := setupServer(t, mux)

	_, err := c.SearchTracks(context.Background(), "q", 5)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	assert.ErrorIs(t, c.Authenticate(context.Background()), domain.ErrNotAuthenticated)
}
