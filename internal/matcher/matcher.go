// Package matcher resolves a source track to at most one equivalent track on
// another platform by searching the destination catalog and scoring the
// candidates it returns.
package matcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

const (
	DefaultSearchLimit      = 8
	DefaultMinScore         = 0.65
	DefaultMaxDurationDelta = 15

	defaultTitleWeight    = 0.55
	defaultArtistWeight   = 0.30
	defaultDurationWeight = 0.15

	maxSearchLimit = 50
)

// Config tunes candidate retrieval and scoring.
type Config struct {
	// SearchLimit is the number of candidates requested per search (top-K).
	SearchLimit int
	// MinScore is the lowest combined score that is accepted as a match.
	MinScore float64
	// MaxDurationDelta rejects candidates whose duration differs from the
	// source by more than this many seconds, whatever their textual score.
	MaxDurationDelta int

	TitleWeight    float64
	ArtistWeight   float64
	DurationWeight float64
}

// DefaultConfig returns the recommended matcher settings.
func DefaultConfig() Config {
	return Config{
		SearchLimit:      DefaultSearchLimit,
		MinScore:         DefaultMinScore,
		MaxDurationDelta: DefaultMaxDurationDelta,
		TitleWeight:      defaultTitleWeight,
		ArtistWeight:     defaultArtistWeight,
		DurationWeight:   defaultDurationWeight,
	}
}

// Matcher is stateless and safe for concurrent use.
type Matcher struct {
	cfg Config
}

// New creates a matcher, filling unset fields of cfg with defaults.
func New(cfg Config) *Matcher {
	def := DefaultConfig()
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = def.SearchLimit
	}
	if cfg.SearchLimit > maxSearchLimit {
		cfg.SearchLimit = maxSearchLimit
	}
	if cfg.MinScore <= 0 || cfg.MinScore > 1 {
		cfg.MinScore = def.MinScore
	}
	if cfg.MaxDurationDelta <= 0 {
		cfg.MaxDurationDelta = def.MaxDurationDelta
	}
	if cfg.TitleWeight <= 0 && cfg.ArtistWeight <= 0 && cfg.DurationWeight <= 0 {
		cfg.TitleWeight = def.TitleWeight
		cfg.ArtistWeight = def.ArtistWeight
		cfg.DurationWeight = def.DurationWeight
	}
	return &Matcher{cfg: cfg}
}

// Config returns the effective configuration.
func (m *Matcher) Config() Config {
	return m.cfg
}

// Query builds the search string for a source track.
func Query(src domain.Track) string {
	title := NormalizeTitle(src.Title)
	artist := PrimaryArtist(src.Artist)
	if artist == "" {
		return title
	}
	return title + " " + artist
}

// Match searches dest for src and returns the best acceptable candidate.
// A failed search is reported as a match_lookup_failed TransferError rather
// than as an unmatched result. Match has no side effects besides the search
// call, so it is safe to retry.
func (m *Matcher) Match(ctx context.Context, dest ports.TrackSearcher, src domain.Track) (domain.MatchResult, error) {
	result := domain.MatchResult{Source: src}

	if strings.TrimSpace(src.Title) == "" {
		return result, fmt.Errorf("%w: source track has no title", domain.ErrInvalidTrack)
	}
	if dest.Platform() == src.Platform {
		return result, fmt.Errorf("%w: track %s is already on %s", domain.ErrSamePlatform, src.PlatformID, src.Platform)
	}

	query := Query(src)
	candidates, err := dest.SearchTracks(ctx, query, m.cfg.SearchLimit)
	if err != nil {
		return result, domain.NewTransferError(domain.KindMatchLookupFailed, fmt.Errorf("search %q on %s: %w", query, dest.Platform(), err))
	}

	bestIdx := -1
	bestScore := 0.0
	for i, cand := range candidates {
		if cand.PlatformID == "" {
			continue
		}
		if cand.Platform != "" && cand.Platform != dest.Platform() {
			continue
		}
		score, ok := m.Score(src, cand)
		if !ok || score < m.cfg.MinScore {
			continue
		}
		// Strictly greater keeps the earliest candidate on ties.
		if score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}

	if bestIdx < 0 {
		return result, nil
	}

	matched := candidates[bestIdx]
	if matched.Platform == "" {
		matched.Platform = dest.Platform()
	}
	confidence := bestScore
	result.Matched = &matched
	result.Confidence = &confidence
	return result, nil
}

// Score computes the similarity of a candidate to the source track. ok is
// false when the candidate fails the duration gate.
func (m *Matcher) Score(src, cand domain.Track) (score float64, ok bool) {
	titleSim := similarity(NormalizeTitle(src.Title), NormalizeTitle(cand.Title))
	artistSim := artistSimilarity(src.Artist, cand.Artist)

	if src.DurationSeconds > 0 && cand.DurationSeconds > 0 {
		delta := src.DurationSeconds - cand.DurationSeconds
		if delta < 0 {
			delta = -delta
		}
		if delta > m.cfg.MaxDurationDelta {
			return 0, false
		}
		durationSim := 1.0 - float64(delta)/float64(m.cfg.MaxDurationDelta)
		total := m.cfg.TitleWeight + m.cfg.ArtistWeight + m.cfg.DurationWeight
		score = (m.cfg.TitleWeight*titleSim + m.cfg.ArtistWeight*artistSim + m.cfg.DurationWeight*durationSim) / total
		return clamp(score), true
	}

	// Unknown duration on either side: score on text alone.
	total := m.cfg.TitleWeight + m.cfg.ArtistWeight
	if total == 0 {
		return 0, true
	}
	score = (m.cfg.TitleWeight*titleSim + m.cfg.ArtistWeight*artistSim) / total
	return clamp(score), true
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
