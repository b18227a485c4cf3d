package domain

import "time"

// Platform identifies a supported streaming service.
type Platform string

const (
	PlatformSpotify Platform = "spotify"
	PlatformYouTube Platform = "youtube"
)

// Valid reports whether p is one of the supported platforms.
func (p Platform) Valid() bool {
	return p == PlatformSpotify || p == PlatformYouTube
}

// Other returns the opposite platform of a two-platform pair.
func (p Platform) Other() Platform {
	if p == PlatformSpotify {
		return PlatformYouTube
	}
	return PlatformSpotify
}

// DisplayName returns the human-readable platform name.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformSpotify:
		return "Spotify"
	case PlatformYouTube:
		return "YouTube Music"
	default:
		return string(p)
	}
}

// PlaylistRef identifies a playlist on one platform. Values obtained from a
// platform client are treated as immutable.
type PlaylistRef struct {
	Platform    Platform `json:"platform"`
	ID          string   `json:"id"`
	DisplayName string   `json:"display_name"`
	TrackCount  int      `json:"track_count"`
}

// Track is a track as known on its native platform. Tracks on different
// platforms are related only through matching.
type Track struct {
	Title           string   `json:"title"`
	Artist          string   `json:"artist"`
	Album           string   `json:"album,omitempty"`
	DurationSeconds int      `json:"duration_seconds"`
	PlatformID      string   `json:"platform_id"`
	Platform        Platform `json:"platform"`
}

// MatchResult is the outcome of resolving one source track. Matched and
// Confidence are nil when no acceptable equivalent was found.
type MatchResult struct {
	Source     Track    `json:"source"`
	Matched    *Track   `json:"matched,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// IsMatched reports whether a destination track was selected.
func (m MatchResult) IsMatched() bool {
	return m.Matched != nil
}

// TransferState is a step of the transfer job state machine.
type TransferState string

const (
	StateCreated   TransferState = "created"
	StateFetching  TransferState = "fetching"
	StateMatching  TransferState = "matching"
	StateWriting   TransferState = "writing"
	StateCompleted TransferState = "completed"
	StateFailed    TransferState = "failed"
)

var stateOrder = map[TransferState]int{
	StateCreated:   0,
	StateFetching:  1,
	StateMatching:  2,
	StateWriting:   3,
	StateCompleted: 4,
}

// IsTerminal reports whether no further transitions are possible.
func (s TransferState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// CanTransition reports whether moving from s to next is allowed. Forward
// moves go one step at a time; failed is reachable from any non-terminal state.
func (s TransferState) CanTransition(next TransferState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	cur, ok := stateOrder[s]
	if !ok {
		return false
	}
	n, ok := stateOrder[next]
	return ok && n == cur+1
}

// TransferJob is the state of one playlist transfer. The orchestrator is its
// only writer; everyone else receives copies.
type TransferJob struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	SourceRef      PlaylistRef   `json:"source"`
	TargetPlatform Platform      `json:"target_platform"`
	TargetRef      *PlaylistRef  `json:"target,omitempty"`
	State          TransferState `json:"state"`
	TotalTracks    int           `json:"total_tracks"`
	ProcessedCount int           `json:"processed_count"`
	MatchedCount   int           `json:"matched_count"`
	WrittenCount   int           `json:"written_count"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Error          *ErrorInfo    `json:"error,omitempty"`
}

// Clone returns a deep copy safe to hand to observers.
func (j TransferJob) Clone() TransferJob {
	out := j
	if j.TargetRef != nil {
		ref := *j.TargetRef
		out.TargetRef = &ref
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.Error != nil {
		e := *j.Error
		out.Error = &e
	}
	return out
}

// Progress returns the job's current progress snapshot.
func (j TransferJob) Progress() Progress {
	return Progress{
		JobID:          j.ID,
		State:          j.State,
		ProcessedCount: j.ProcessedCount,
		MatchedCount:   j.MatchedCount,
		WrittenCount:   j.WrittenCount,
		TotalTracks:    j.TotalTracks,
	}
}

// Progress is emitted at state transitions, after each track match and after
// each batch write.
type Progress struct {
	JobID          string        `json:"job_id"`
	State          TransferState `json:"state"`
	ProcessedCount int           `json:"processed_count"`
	MatchedCount   int           `json:"matched_count"`
	WrittenCount   int           `json:"written_count"`
	TotalTracks    int           `json:"total_tracks"`
}

// HistoryStatus is the outcome stored in a history record.
type HistoryStatus string

const (
	HistoryCompleted  HistoryStatus = "completed"
	HistoryFailed     HistoryStatus = "failed"
	HistoryInProgress HistoryStatus = "in-progress"
)

// HistoryRecord is the durable, write-once summary of a finished transfer.
type HistoryRecord struct {
	ID               string        `json:"id"`
	UserID           string        `json:"user_id"`
	SourcePlatform   Platform      `json:"source_platform"`
	TargetPlatform   Platform      `json:"target_platform"`
	SourcePlaylistID string        `json:"source_playlist_id"`
	TargetPlaylistID string        `json:"target_playlist_id,omitempty"`
	SongsTransferred int           `json:"songs_transferred"`
	Status           HistoryStatus `json:"status"`
	ErrorKind        ErrorKind     `json:"error_kind,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}

// StartRequest carries everything needed to begin a transfer. Tokens are
// opaque bearer credentials passed through to the platform clients.
type StartRequest struct {
	UserID           string   `json:"user_id" binding:"required"`
	SourcePlatform   Platform `json:"source_provider" binding:"required"`
	SourceToken      string   `json:"source_token" binding:"required"`
	SourcePlaylistID string   `json:"playlist_id" binding:"required"`
	TargetPlatform   Platform `json:"dest_provider" binding:"required"`
	TargetToken      string   `json:"dest_token" binding:"required"`
	// TargetPlaylistID reuses an existing destination playlist instead of
	// creating a new one.
	TargetPlaylistID string `json:"dest_playlist_id,omitempty"`
}
