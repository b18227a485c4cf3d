package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	maxResults = 50
	// playlistItems.insert takes one video per call; this is how many the
	// client accepts per AddTracks call.
	maxBatch = 50
	// videoCategoryId for Music
	musicCategory = "10"
)

// Config holds the settings shared by every client the connector builds.
type Config struct {
	BaseURL string
	// RequestsPerSecond throttles outgoing calls; zero disables throttling.
	RequestsPerSecond float64
	// HTTPClient is the base transport. Nil means http.DefaultClient.
	HTTPClient *http.Client
}

// Client implements ports.PlatformClient for YouTube using the Data API v3.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

var _ ports.PlatformClient = (*Client)(nil)

// NewClient creates a YouTube client authorized with token.
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

// Connector returns a ports.Connector building YouTube clients that share
// one rate limiter.
func Connector(cfg Config) ports.Connector {
	limiter := adapters.NewLimiter(cfg.RequestsPerSecond)
	return func(token string) (ports.PlatformClient, error) {
		return newClient(token, cfg, limiter), nil
	}
}

func (c *Client) Platform() domain.Platform { return domain.PlatformYouTube }

func (c *Client) BatchLimit() int { return maxBatch }

// -- API response types (internal) ------------------------------------------

type playlistListResponse struct {
	Items         []playlistResource `json:"items"`
	NextPageToken string             `json:"nextPageToken"`
}

type playlistResource struct {
	ID             string          `json:"id"`
	Snippet        playlistSnippet `json:"snippet"`
	ContentDetails struct {
		ItemCount int `json:"itemCount"`
	} `json:"contentDetails"`
}

type playlistSnippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

type playlistItemsResponse struct {
	Items         []playlistItemResource `json:"items"`
	NextPageToken string                 `json:"nextPageToken"`
}

type playlistItemResource struct {
	Snippet playlistItemSnippet `json:"snippet"`
}

type playlistItemSnippet struct {
	Title                  string     `json:"title"`
	VideoOwnerChannelTitle string     `json:"videoOwnerChannelTitle"`
	ResourceID             resourceID `json:"resourceId"`
}

type resourceID struct {
	VideoID string `json:"videoId"`
}

type searchListResponse struct {
	Items []searchResult `json:"items"`
}

type searchResult struct {
	ID      searchResultID `json:"id"`
	Snippet searchSnippet  `json:"snippet"`
}

type searchResultID struct {
	VideoID string `json:"videoId"`
}

type searchSnippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

type videoListResponse struct {
	Items []videoResource `json:"items"`
}

type videoResource struct {
	ID             string `json:"id"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
}

// -- PlatformClient implementation -------------------------------------------

func (c *Client) Authenticate(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/channels?part=id&mine=true", c.baseURL)
	if err := c.getJSON(ctx, endpoint, &struct{}{}); err != nil {
		return fmt.Errorf("youtube: authenticate: %w", err)
	}
	return nil
}

// ListPlaylists lists the playlists of a channel. An empty userID means the
// authenticated user's channel.
func (c *Client) ListPlaylists(ctx context.Context, userID string) ([]domain.PlaylistRef, error) {
	owner := "mine=true"
	if userID != "" {
		owner = "channelId=" + url.QueryEscape(userID)
	}

	playlists := []domain.PlaylistRef{}
	pageToken := ""
	for {
		endpoint := fmt.Sprintf(
			"%s/playlists?part=snippet,contentDetails&%s&maxResults=%d",
			c.baseURL, owner, maxResults,
		)
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var resp playlistListResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("youtube: failed to get playlists: %w", err)
		}

		for _, item := range resp.Items {
			playlists = append(playlists, toPlaylistRef(item))
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}
	return playlists, nil
}

func (c *Client) GetPlaylist(ctx context.Context, playlistID string) (domain.PlaylistRef, error) {
	endpoint := fmt.Sprintf("%s/playlists?part=snippet,contentDetails&id=%s", c.baseURL, url.QueryEscape(playlistID))

	var resp playlistListResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return domain.PlaylistRef{}, fmt.Errorf("youtube: failed to get playlist %s: %w", playlistID, err)
	}
	if len(resp.Items) == 0 {
		return domain.PlaylistRef{}, fmt.Errorf("youtube: playlist %s: %w", playlistID, domain.ErrNotFound)
	}
	return toPlaylistRef(resp.Items[0]), nil
}

func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error) {
	var tracks []domain.Track
	pageToken := ""

	for {
		endpoint := fmt.Sprintf(
			"%s/playlistItems?part=snippet&playlistId=%s&maxResults=%d",
			c.baseURL, url.QueryEscape(playlistID), maxResults,
		)
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		var resp playlistItemsResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return nil, fmt.Errorf("youtube: failed to get playlist items: %w", err)
		}

		for _, item := range resp.Items {
			if item.Snippet.ResourceID.VideoID == "" {
				continue
			}
			tracks = append(tracks, toTrack(item.Snippet.ResourceID.VideoID, item.Snippet.Title, item.Snippet.VideoOwnerChannelTitle))
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if err := c.fillDurations(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	limit = min(max(limit, 1), maxResults)
	endpoint := fmt.Sprintf(
		"%s/search?part=snippet&type=video&videoCategoryId=%s&maxResults=%d&q=%s",
		c.baseURL, musicCategory, limit, url.QueryEscape(query),
	)

	var resp searchListResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("youtube: search failed: %w", err)
	}

	tracks := make([]domain.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		tracks = append(tracks, toTrack(item.ID.VideoID, item.Snippet.Title, item.Snippet.ChannelTitle))
	}

	if err := c.fillDurations(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (c *Client) CreatePlaylist(ctx context.Context, name string, description string) (domain.PlaylistRef, error) {
	payload := map[string]interface{}{
		"snippet": map[string]string{
			"title":       name,
			"description": description,
		},
		"status": map[string]string{
			"privacyStatus": "private",
		},
	}

	var resp playlistResource
	endpoint := fmt.Sprintf("%s/playlists?part=snippet,status", c.baseURL)
	if err := c.postJSON(ctx, endpoint, payload, &resp); err != nil {
		return domain.PlaylistRef{}, fmt.Errorf("youtube: failed to create playlist: %w", err)
	}

	ref := toPlaylistRef(resp)
	if ref.DisplayName == "" {
		ref.DisplayName = name
	}
	return ref, nil
}

// AddTracks inserts videos one at a time, in order. On failure added reports
// how many leading videos were inserted.
func (c *Client) AddTracks(ctx context.Context, playlistID string, trackIDs []string) (int, error) {
	if len(trackIDs) > maxBatch {
		return 0, fmt.Errorf("youtube: %w: %d tracks exceeds batch limit %d", domain.ErrInvalidArgument, len(trackIDs), maxBatch)
	}

	endpoint := fmt.Sprintf("%s/playlistItems?part=snippet", c.baseURL)
	for i, videoID := range trackIDs {
		payload := map[string]interface{}{
			"snippet": map[string]interface{}{
				"playlistId": playlistID,
				"resourceId": map[string]string{
					"kind":    "youtube#video",
					"videoId": videoID,
				},
			},
		}
		if err := c.postJSON(ctx, endpoint, payload, nil); err != nil {
			return i, fmt.Errorf("youtube: failed to add video %s to playlist: %w", videoID, err)
		}
	}
	return len(trackIDs), nil
}

// fillDurations looks up video lengths in groups of maxResults IDs.
func (c *Client) fillDurations(ctx context.Context, tracks []domain.Track) error {
	for start := 0; start < len(tracks); start += maxResults {
		end := min(start+maxResults, len(tracks))

		ids := make([]string, 0, end-start)
		for _, t := range tracks[start:end] {
			ids = append(ids, t.PlatformID)
		}

		endpoint := fmt.Sprintf("%s/videos?part=contentDetails&id=%s", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))
		var resp videoListResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return fmt.Errorf("youtube: failed to get video details: %w", err)
		}

		durations := make(map[string]int, len(resp.Items))
		for _, v := range resp.Items {
			durations[v.ID] = parseDuration(v.ContentDetails.Duration)
		}
		for i := start; i < end; i++ {
			tracks[i].DurationSeconds = durations[tracks[i].PlatformID]
		}
	}
	return nil
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
		return adapters.TransportError("youtube", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapters.TransportError("youtube", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusForbidden && isQuotaError(body) {
			return fmt.Errorf("youtube API quota exhausted: %w", domain.ErrRateLimited)
		}
		return adapters.StatusError("youtube", resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// isQuotaError reports whether a 403 body carries a quota or rate reason,
// which YouTube uses instead of 429.
func isQuotaError(body []byte) bool {
	var e struct {
		Error struct {
			Errors []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return false
	}
	for _, r := range e.Error.Errors {
		switch r.Reason {
		case "quotaExceeded", "rateLimitExceeded", "userRateLimitExceeded":
			return true
		}
	}
	return false
}

// -- Helpers -----------------------------------------------------------------

func toPlaylistRef(item playlistResource) domain.PlaylistRef {
	return domain.PlaylistRef{
		Platform:    domain.PlatformYouTube,
		ID:          item.ID,
		DisplayName: html.UnescapeString(item.Snippet.Title),
		TrackCount:  item.ContentDetails.ItemCount,
	}
}

func toTrack(videoID, title, channel string) domain.Track {
	title = html.UnescapeString(title)
	name, artist := parseVideoTitle(title)
	if name == "" {
		name = title
	}
	if artist == "" {
		artist = html.UnescapeString(channel)
	}
	return domain.Track{
		Title:      name,
		Artist:     artist,
		PlatformID: videoID,
		Platform:   domain.PlatformYouTube,
	}
}

// parseVideoTitle attempts to split a YouTube video title into track name and
// artist. Common formats: "Artist - Track", "Artist - Track (Official Video)".
// Bracketed decorations are left for the matcher to strip.
func parseVideoTitle(title string) (name, artist string) {
	parts := strings.SplitN(title, " - ", 2)
	if len(parts) == 2 && strings.TrimSpace(parts[0]) != "" && strings.TrimSpace(parts[1]) != "" {
		return strings.TrimSpace(parts[1]), strings.TrimSpace(parts[0])
	}
	return strings.TrimSpace(title), ""
}

// parseDuration converts an ISO 8601 duration such as "PT1H2M3S" to seconds.
// Unparseable values yield 0, which the matcher treats as unknown.
func parseDuration(s string) int {
	if !strings.HasPrefix(s, "P") {
		return 0
	}
	s = s[1:]

	total, n := 0, 0
	inTime, digits := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			n = n*10 + int(r-'0')
			digits = true
			continue
		case r == 'T':
			inTime = true
			continue
		}
		if !digits {
			return 0
		}
		switch {
		case r == 'D' && !inTime:
			total += n * 86400
		case r == 'W' && !inTime:
			total += n * 7 * 86400
		case r == 'H' && inTime:
			total += n * 3600
		case r == 'M' && inTime:
			total += n * 60
		case r == 'S' && inTime:
			total += n
		default:
			return 0
		}
		n, digits = 0, false
	}
	if digits {
		return 0
	}
	return total
}
