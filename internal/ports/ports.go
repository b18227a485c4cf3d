package ports

import (
	"context"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
)

// TrackSearcher is the subset of a platform client the track matcher needs.
type TrackSearcher interface {
	// Platform returns the platform this client talks to.
	Platform() domain.Platform

	// SearchTracks returns at most limit catalog tracks for the query, best
	// first as ranked by the platform.
	SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error)
}

// PlatformClient defines the contract every streaming service adapter must
// implement. This is the primary driven port of the hexagonal architecture.
// Every operation may fail with domain.ErrNotAuthenticated, ErrNotFound,
// ErrRateLimited or ErrTransientNetwork.
type PlatformClient interface {
	TrackSearcher

	// Authenticate verifies the client's credentials against the platform.
	Authenticate(ctx context.Context) error

	// ListPlaylists returns the playlists of userID. An empty userID means the
	// authenticated user.
	ListPlaylists(ctx context.Context, userID string) ([]domain.PlaylistRef, error)

	// GetPlaylist returns playlist detail without tracks.
	GetPlaylist(ctx context.Context, playlistID string) (domain.PlaylistRef, error)

	// GetPlaylistTracks returns all tracks in a playlist in playlist order,
	// handling pagination internally.
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]domain.Track, error)

	// CreatePlaylist creates a new playlist owned by the authenticated user.
	CreatePlaylist(ctx context.Context, name string, description string) (domain.PlaylistRef, error)

	// AddTracks appends tracks (by platform ID) to a playlist in the given
	// order. On error, added reports how many leading IDs were written.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) (added int, err error)

	// BatchLimit is the maximum number of IDs accepted by one AddTracks call.
	BatchLimit() int
}

// Connector builds a platform client bound to a caller-supplied bearer token.
type Connector func(token string) (PlatformClient, error)

// HistoryStore is the durable, append-only transfer history.
type HistoryStore interface {
	// Append stores a new record. Records are never updated in place.
	Append(ctx context.Context, record domain.HistoryRecord) error

	// List returns userID's records newest first by CreatedAt.
	List(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
}

// TransferService defines the driving port for the playlist transfer use case.
type TransferService interface {
	// Start validates the request and begins the transfer pipeline in the
	// background, returning the initial job snapshot.
	Start(ctx context.Context, req domain.StartRequest) (domain.TransferJob, error)

	// Snapshot returns a read-only copy of the job.
	Snapshot(jobID string) (domain.TransferJob, error)

	// Cancel requests cooperative cancellation of a running job.
	Cancel(jobID string) error

	// Subscribe returns a stream of progress snapshots that is closed when
	// the job ends. The returned func releases the subscription.
	Subscribe(jobID string) (<-chan domain.Progress, func(), error)

	// ListPlaylists returns playlists from a given platform for the token's user.
	ListPlaylists(ctx context.Context, platform domain.Platform, token string, userID string) ([]domain.PlaylistRef, error)

	// History returns userID's past transfers newest first.
	History(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
}
