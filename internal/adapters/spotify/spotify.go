package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

const (
	DefaultBaseURL = "https://api.spotify.com/v1"

	maxPerPage   = 50
	maxBatch     = 100
	maxSearchHit = 50
)

// Config holds the settings shared by every client the connector builds.
type Config struct {
	BaseURL string
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	// HTTPClient is the base transport. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Client implements ports.PlatformClient for Spotify using the Web API.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

var _ ports.PlatformClient = (*Client)(nil)

// NewClient creates a Spotify client authorized with token.
func NewClient(token string, cfg Config) *Client {
	return newClient(token, cfg, adapters.NewLimiter(cfg.RequestsPerSecond))
}

func newClient(token string, cfg Config, limiter *rate.Limiter) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return &Client{
		client:  adapters.NewBearerClient(cfg.HTTPClient, token),
		baseURL: base,
		limiter: limiter,
	}
}

// Connector returns a ports.Connector building Spotify clients. All clients
// it builds share one rate limiter.
func Connector(cfg Config) ports.Connector {
	limiter := adapters.NewLimiter(cfg.RequestsPerSecond)
	return func(token string) (ports.PlatformClient, error) {
		return newClient(token, cfg, limiter), nil
	}
}

func (c *Client) Platform() domain.Platform { return domain.PlatformSpotify }

func (c *Client) BatchLimit() int { return maxBatch }

// -- API response types (internal) ------------------------------------------

type playlistsResponse struct {
	Items []playlistItem `json:"items"`
	Next  string         `json:"next"`
	Total int            `json:"total"`
}

type playlistItem struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Tracks trackRef `json:"tracks"`
}

type trackRef struct {
	Total int `json:"total"`
}

type tracksResponse struct {
	Items []trackItem `json:"items"`
	Next  string      `json:"next"`
}

type trackItem struct {
	IsLocal bool       `json:"is_local"`
	Track   *trackData `json:"track"`
}

type trackData struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	DurationMS int          `json:"duration_ms"`
	Artists    []artistData `json:"artists"`
	Album      albumData    `json:"album"`
}

type artistData struct {
	Name string `json:"name"`
}

type albumData struct {
	Name string `json:"name"`
}

type searchResponse struct {
	Tracks searchTracks `json:"tracks"`
}

type searchTracks struct {
	Items []trackData `json:"items"`
}

type userResponse struct {
	ID string `json:"id"`
}

// -- PlatformClient implementation -------------------------------------------

func (c *Client) Authenticate(ctx context.Context) error {
	if _, err := c.currentUser(ctx); err != nil {
		return fmt.Errorf("spotify: authenticate: %w", err)
	}
	return nil
}

func (c *Client) ListPlaylists(ctx context.Context, userID string) ([]domain.PlaylistRef, error) {
	endpoint := fmt.Sprintf("%s/me/playlists?limit=%d", c.baseURL, maxPerPage)
	if userID != "" {
		endpoint = fmt.Sprintf("%s/users/%s/playlists?limit=%d", c.baseURL, url.PathEscape(userID), maxPerPage)
	}

	playlists := []domain.PlaylistRef{}
	for endpoint != "" {
		var resp playlistsResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("spotify: failed to get playlists: %w", err)
		}

		for _, item := range resp.Items {
			playlists = append(playlists, toPlaylistRef(item))
		}
		endpoint = resp.Next
	}
	return playlists, nil
}

func (c *Client) GetPlaylist(ctx context.Context, playlistID string) (domain.PlaylistRef, error) {
	endpoint := fmt.Sprintf("%s/playlists/%s?fields=id,name,tracks.total", c.baseURL, url.PathEscape(playlistID))

	var item playlistItem
	if err := c.getJSON(ctx, endpoint, &item); err != nil {
		return domain.PlaylistRef{}, fmt.Errorf("spotify: failed to get playlist %s: %w", playlistID, err)
	}
	return toPlaylistRef(item), nil
}

func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	var tracks []domain.Track
	endpoint := fmt.Sprintf("%s/playlists/%s/tracks?limit=%d", c.baseURL, url.PathEscape(playlistID), maxPerPage)

	for endpoint != "" {
		var resp tracksResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("spotify: failed to get playlist tracks: %w", err)
		}

		for _, item := range resp.Items {
			// skip local files, podcast episodes and removed tracks
			if item.IsLocal || item.Track == nil || item.Track.ID == "" {
				continue
			}
			if item.Track.Type != "" && item.Track.Type != "track" {
				continue
			}
			tracks = append(tracks, toTrack(*item.Track))
		}
		endpoint = resp.Next
	}
	return tracks, nil
}

func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	limit = min(max(limit, 1), maxSearchHit)
	endpoint := fmt.Sprintf("%s/search?type=track&limit=%d&q=%s", c.baseURL, limit, url.QueryEscape(query))

	var resp searchResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("spotify: search failed: %w", err)
	}

	tracks := make([]domain.Track, 0, len(resp.Tracks.Items))
	for _, item := range resp.Tracks.Items {
		if item.ID == "" {
			continue
		}
		tracks = append(tracks, toTrack(item))
	}
	return tracks, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name string, description string) (domain.PlaylistRef, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return domain.PlaylistRef{}, fmt.Errorf("spotify: failed to get current user: %w", err)
	}

	payload := map[string]interface{}{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var item playlistItem
	endpoint := fmt.Sprintf("%s/users/%s/playlists", c.baseURL, url.PathEscape(user.ID))
	if err := c.postJSON(ctx, endpoint, payload, &item); err != nil {
		return domain.PlaylistRef{}, fmt.Errorf("spotify: failed to create playlist: %w", err)
	}

	ref := toPlaylistRef(item)
	if ref.DisplayName == "" {
		ref.DisplayName = name
	}
	return ref, nil
}

// AddTracks appends up to BatchLimit tracks in one request. Spotify applies
// the request atomically, so added is either zero or len(trackIDs).
func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (int, error) {
	if len(trackIDs) == 0 {
		return 0, nil
	}
	if len(trackIDs) > maxBatch {
		return 0, fmt.Errorf("spotify: %w: %d tracks exceeds batch limit %d", domain.ErrInvalidArgument, len(trackIDs), maxBatch)
	}

	uris := make([]string, 0, len(trackIDs))
	for _, id := range trackIDs {
		uris = append(uris, "spotify:track:"+id)
	}

	endpoint := fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, url.PathEscape(playlistID))
	if err := c.postJSON(ctx, endpoint, map[string]interface{}{"uris": uris}, nil); err != nil {
		return 0, fmt.Errorf("spotify: failed to add tracks to playlist: %w", err)
	}
	return len(trackIDs), nil
}

func (c *Client) currentUser(ctx context.Context) (userResponse, error) {
	var user userResponse
	err := c.getJSON(ctx, c.baseURL+"/me", &user)
	return user, err
}

// -- HTTP helpers ------------------------------------------------------------

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, endpoint, body, out)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return adapters.TransportError("spotify", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapters.TransportError("spotify", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapters.StatusError("spotify", resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// -- Helpers -----------------------------------------------------------------

func toPlaylistRef(item playlistItem) domain.PlaylistRef {
	return domain.PlaylistRef{
		Platform:    domain.PlatformSpotify,
		ID:          item.ID,
		DisplayName: item.Name,
		TrackCount:  item.Tracks.Total,
	}
}

func toTrack(t trackData) domain.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	return domain.Track{
		Title:           t.Name,
		Artist:          strings.Join(artists, ", "),
		Album:           t.Album.Name,
		DurationSeconds: int(math.Round(float64(t.DurationMS) / 1000)),
		PlatformID:      t.ID,
		Platform:        domain.PlatformSpotify,
	}
}
