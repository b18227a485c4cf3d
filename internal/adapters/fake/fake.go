// Package fake provides an in-memory platform client with a deterministic
// catalog. It backs PLATFORM_MODE=fake and the service tests, and can be told
// to fail specific operations.
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// Op names a catalog operation for failure injection and call counting.
type Op string

const (
	OpAuthenticate Op = "authenticate"
	OpList         Op = "list_playlists"
	OpGetPlaylist  Op = "get_playlist"
	OpGetTracks    Op = "get_playlist_tracks"
	OpSearch       Op = "search"
	OpCreate       Op = "create_playlist"
	OpAddTracks    Op = "add_tracks"
)

const defaultBatchLimit = 100

type failure struct {
	err   error
	added int
}

type playlist struct {
	ref         domain.PlaylistRef
	owner       string
	description string
	tracks      []domain.Track
}

// Catalog is a fake platform. It is safe for concurrent use.
type Catalog struct {
	mu         sync.Mutex
	platform   domain.Platform
	playlists  map[string]*playlist
	order      []string
	tracks     []domain.Track
	byID       map[string]domain.Track
	batchLimit int
	nextID     int
	failures   map[Op][]failure
	calls      map[Op]int

	// OnSearch, if set, runs before every search outside the catalog lock.
	OnSearch func(query string)
	// OnCreate and OnAddTracks run the same way before playlist writes.
	OnCreate    func(name string)
	OnAddTracks func(playlistID string, trackIDs []string)
}

var _ ports.PlatformClient = (*Catalog)(nil)

// NewCatalog returns an empty catalog for platform.
func NewCatalog(platform domain.Platform) *Catalog {
	return &Catalog{
		platform:   platform,
		playlists:  make(map[string]*playlist),
		byID:       make(map[string]domain.Track),
		batchLimit: defaultBatchLimit,
		failures:   make(map[Op][]failure),
		calls:      make(map[Op]int),
	}
}

// Connector returns a connector that hands out c for every token.
func Connector(c *Catalog) ports.Connector {
	return func(string) (ports.PlatformClient, error) {
		return c, nil
	}
}

// AddCatalogTracks makes tracks searchable. Tracks without an ID get one.
func (c *Catalog) AddCatalogTracks(tracks ...domain.Track) []domain.Track {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Track, len(tracks))
	for i, t := range tracks {
		t.Platform = c.platform
		if t.PlatformID == "" {
			c.nextID++
			t.PlatformID = fmt.Sprintf("%s-track-%d", c.prefix(), c.nextID)
		}
		if _, ok := c.byID[t.PlatformID]; !ok {
			c.tracks = append(c.tracks, t)
		}
		c.byID[t.PlatformID] = t
		out[i] = t
	}
	return out
}

// AddPlaylist stores a playlist owned by owner. Its tracks are also made
// searchable.
func (c *Catalog) AddPlaylist(owner string, ref domain.PlaylistRef, tracks []domain.Track) domain.PlaylistRef {
	stored := c.AddCatalogTracks(tracks...)

	c.mu.Lock()
	defer c.mu.Unlock()

	ref.Platform = c.platform
	if ref.ID == "" {
		c.nextID++
		ref.ID = fmt.Sprintf("%s-playlist-%d", c.prefix(), c.nextID)
	}
	ref.TrackCount = len(stored)
	c.playlists[ref.ID] = &playlist{ref: ref, owner: owner, tracks: stored}
	c.order = append(c.order, ref.ID)
	return ref
}

// SetBatchLimit changes the per-call AddTracks limit.
func (c *Catalog) SetBatchLimit(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batchLimit = n
}

// FailNext queues errors returned by the next calls to op, one per call.
func (c *Catalog) FailNext(op Op, errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, err := range errs {
		c.failures[op] = append(c.failures[op], failure{err: err})
	}
}

// FailNextAddAfter makes the next AddTracks call write added IDs and then
// fail with err.
func (c *Catalog) FailNextAddAfter(added int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[OpAddTracks] = append(c.failures[OpAddTracks], failure{err: err, added: added})
}

// Calls returns how many times op has been invoked.
func (c *Catalog) Calls(op Op) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// PlaylistTracks returns a copy of the tracks stored in a playlist.
func (c *Catalog) PlaylistTracks(playlistID string) []domain.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.playlists[playlistID]
	if !ok {
		return nil
	}
	return append([]domain.Track(nil), p.tracks...)
}

// Description returns the description a playlist was created with.
func (c *Catalog) Description(playlistID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.playlists[playlistID]; ok {
		return p.description
	}
	return ""
}

// Playlist returns the stored playlist detail.
func (c *Catalog) Playlist(playlistID string) (domain.PlaylistRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.playlists[playlistID]
	if !ok {
		return domain.PlaylistRef{}, false
	}
	return p.ref, true
}

func (c *Catalog) prefix() string {
	switch c.platform {
	case domain.PlatformSpotify:
		return "sp"
	case domain.PlatformYouTube:
		return "yt"
	default:
		return string(c.platform)
	}
}

// begin counts the call and pops a queued failure. Callers hold c.mu.
func (c *Catalog) begin(op Op) (failure, bool) {
	c.calls[op]++
	queue := c.failures[op]
	if len(queue) == 0 {
		return failure{}, false
	}
	c.failures[op] = queue[1:]
	return queue[0], true
}

func (c *Catalog) Platform() domain.Platform { return c.platform }

func (c *Catalog) BatchLimit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batchLimit
}

func (c *Catalog) Authenticate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.begin(OpAuthenticate); ok {
		return f.err
	}
	return nil
}

func (c *Catalog) ListPlaylists(_ context.Context, userID string) ([]domain.PlaylistRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.begin(OpList); ok {
		return nil, f.err
	}

	out := make([]domain.PlaylistRef, 0, len(c.order))
	for _, id := range c.order {
		p := c.playlists[id]
		if userID != "" && p.owner != "" && p.owner != userID {
			continue
		}
		out = append(out, p.ref)
	}
	return out, nil
}

func (c *Catalog) GetPlaylist(_ context.Context, playlistID string) (domain.PlaylistRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.begin(OpGetPlaylist); ok {
		return domain.PlaylistRef{}, f.err
	}

	p, ok := c.playlists[playlistID]
	if !ok {
		return domain.PlaylistRef{}, fmt.Errorf("playlist %s: %w", playlistID, domain.ErrNotFound)
	}
	ref := p.ref
	ref.TrackCount = len(p.tracks)
	return ref, nil
}

func (c *Catalog) GetPlaylistTracks(_ context.Context, playlistID string) ([]domain.Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.begin(OpGetTracks); ok {
		return nil, f.err
	}

	p, ok := c.playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("playlist %s: %w", playlistID, domain.ErrNotFound)
	}
	return append([]domain.Track(nil), p.tracks...), nil
}

// SearchTracks ranks catalog tracks by how many query words appear in their
// title and artist.
func (c *Catalog) SearchTracks(_ context.Context, query string, limit int) ([]domain.Track, error) {
	if c.OnSearch != nil {
		c.OnSearch(query)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.begin(OpSearch); ok {
		return nil, f.err
	}

	words := strings.Fields(strings.ToLower(query))
	type hit struct {
		track domain.Track
		score int
	}
	var hits []hit
	for _, t := range c.tracks {
		text := strings.ToLower(t.Title + " " + t.Artist)
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{track: t, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Track, len(hits))
	for i, h := range hits {
		out[i] = h.track
	}
	return out, nil
}

func (c *Catalog) CreatePlaylist(_ context.Context, name string, description string) (domain.PlaylistRef, error) {
	if c.OnCreate != nil {
		c.OnCreate(name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.begin(OpCreate); ok {
		return domain.PlaylistRef{}, f.err
	}

	c.nextID++
	ref := domain.PlaylistRef{
		Platform:    c.platform,
		ID:          fmt.Sprintf("%s-playlist-%d", c.prefix(), c.nextID),
		DisplayName: name,
	}
	c.playlists[ref.ID] = &playlist{ref: ref, description: description}
	c.order = append(c.order, ref.ID)
	return ref, nil
}

func (c *Catalog) AddTracks(_ context.Context, playlistID string, trackIDs []string) (int, error) {
	if c.OnAddTracks != nil {
		c.OnAddTracks(playlistID, trackIDs)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.playlists[playlistID]
	f, failed := c.begin(OpAddTracks)
	if failed && f.added == 0 {
		return 0, f.err
	}
	if !ok {
		return 0, fmt.Errorf("playlist %s: %w", playlistID, domain.ErrNotFound)
	}
	if len(trackIDs) > c.batchLimit {
		return 0, fmt.Errorf("%w: %d ids exceeds batch limit %d", domain.ErrInvalidArgument, len(trackIDs), c.batchLimit)
	}

	n := len(trackIDs)
	if failed {
		n = min(f.added, n)
	}
	for _, id := range trackIDs[:n] {
		t, ok := c.byID[id]
		if !ok {
			t = domain.Track{PlatformID: id, Platform: c.platform}
		}
		p.tracks = append(p.tracks, t)
	}
	p.ref.TrackCount = len(p.tracks)

	if failed {
		return n, f.err
	}
	return n, nil
}
