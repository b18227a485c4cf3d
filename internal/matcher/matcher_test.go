package matcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Stub searcher -----------------------------------------------------------

type stubSearcher struct {
	platform   domain.Platform
	candidates []domain.Track
	err        error
	queries    []string
	limits     []int
}

func (s *stubSearcher) Platform() domain.Platform { return s.platform }

func (s *stubSearcher) SearchTracks(_ context.Context, query string, limit int) ([]domain.Track, error) {
	s.queries = append(s.queries, query)
	s.limits = append(s.limits, limit)
	if s.err != nil {
		return nil, s.err
	}
	return s.candidates, nil
}

func ytTrack(id, title, artist string, duration int) domain.Track {
	return domain.Track{
		Title:           title,
		Artist:          artist,
		DurationSeconds: duration,
		PlatformID:      id,
		Platform:        domain.PlatformYouTube,
	}
}

var source = domain.Track{
	Title:           "Bohemian Rhapsody",
	Artist:          "Queen",
	Album:           "A Night at the Opera",
	DurationSeconds: 354,
	PlatformID:      "sp-1",
	Platform:        domain.PlatformSpotify,
}

// -- Normalization -----------------------------------------------------------

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"Bohemian Rhapsody":                    "bohemian rhapsody",
		"Bohemian Rhapsody (Official Video)":   "bohemian rhapsody",
		"Levitating (feat. DaBaby)":            "levitating",
		"Stay [ft. Justin Bieber]":             "stay",
		"Señorita featuring Camila Cabello":    "senorita",
		"Don't Stop Me Now - Remastered 2011":  "dont stop me now",
		"Under Pressure (with David Bowie)":    "under pressure",
		"  Hello,   World!  ":                  "hello world",
		"Rock & Roll":                          "rock and roll",
		"HALO":                                 "halo",
		"Smells Like Teen Spirit [Remastered]": "smells like teen spirit",
		"Numb (Official Music Video) [4K]":     "numb",
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, NormalizeTitle(in))
		})
	}
}

func TestNormalizeArtist(t *testing.T) {
	assert.Equal(t, "beyonce", NormalizeArtist("Beyoncé"))
	assert.Equal(t, "queen", NormalizeArtist("QueenVEVO"))
	assert.Equal(t, "queen", NormalizeArtist("Queen - Topic"))
	assert.Equal(t, "dua lipa", PrimaryArtist("Dua Lipa, DaBaby"))
	assert.Equal(t, "simon", PrimaryArtist("Simon & Garfunkel"))
}

func TestQuery(t *testing.T) {
	q := Query(domain.Track{Title: "Levitating (feat. DaBaby)", Artist: "Dua Lipa, DaBaby"})
	assert.Equal(t, "levitating dua lipa", q)

	assert.Equal(t, "intro", Query(domain.Track{Title: "Intro"}))
}

// -- Matching ----------------------------------------------------------------

func TestMatch_PerfectCandidate(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		candidates: []domain.Track{
			ytTrack("yt-cover", "Bohemian Rhapsody (Piano Cover)", "Some Pianist", 300),
			ytTrack("yt-1", "Bohemian Rhapsody", "Queen", 354),
		},
	}

	m := New(DefaultConfig())
	res, err := m.Match(context.Background(), dest, source)

	require.NoError(t, err)
	require.True(t, res.IsMatched())
	assert.Equal(t, "yt-1", res.Matched.PlatformID)
	require.NotNil(t, res.Confidence)
	assert.InDelta(t, 1.0, *res.Confidence, 1e-9)
	assert.Equal(t, source, res.Source)
	assert.Equal(t, []string{"bohemian rhapsody queen"}, dest.queries)
	assert.Equal(t, []int{DefaultSearchLimit}, dest.limits)
}

func TestMatch_DurationGateRejectsIdenticalTitle(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		candidates: []domain.Track{
			ytTrack("yt-long", "Bohemian Rhapsody", "Queen", source.DurationSeconds+20),
			ytTrack("yt-short", "Bohemian Rhapsody", "Queen", source.DurationSeconds-16),
		},
	}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.NoError(t, err)
	assert.False(t, res.IsMatched())
	assert.Nil(t, res.Confidence)
}

func TestMatch_DurationGateBoundary(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		candidates: []domain.Track{
			ytTrack("yt-over", "Bohemian Rhapsody", "Queen", source.DurationSeconds+16),
			ytTrack("yt-edge", "Bohemian Rhapsody", "Queen", source.DurationSeconds+15),
		},
	}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.NoError(t, err)
	require.True(t, res.IsMatched())
	assert.Equal(t, "yt-edge", res.Matched.PlatformID)
}

func TestMatch_BelowThreshold(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		candidates: []domain.Track{
			ytTrack("yt-x", "Completely Different Song", "Another Band", 354),
		},
	}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.NoError(t, err)
	assert.False(t, res.IsMatched())
}

func TestMatch_NoCandidates(t *testing.T) {
	dest := &stubSearcher{platform: domain.PlatformYouTube}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.NoError(t, err)
	assert.False(t, res.IsMatched())
}

func TestMatch_TieKeepsEarliestCandidate(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		candidates: []domain.Track{
			ytTrack("yt-a", "Bohemian Rhapsody", "Queen", 354),
			ytTrack("yt-b", "Bohemian Rhapsody", "Queen", 354),
		},
	}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.NoError(t, err)
	assert.Equal(t, "yt-a", res.Matched.PlatformID)
}

func TestMatch_UnknownDurationScoresOnText(t *testing.T) {
	src := source
	src.DurationSeconds = 0
	dest := &stubSearcher{
		platform:   domain.PlatformYouTube,
		candidates: []domain.Track{ytTrack("yt-1", "Bohemian Rhapsody", "QueenVEVO", 9999)},
	}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, src)

	require.NoError(t, err)
	require.True(t, res.IsMatched())
	assert.InDelta(t, 1.0, *res.Confidence, 1e-9)
}

func TestMatch_SkipsCandidatesWithoutID(t *testing.T) {
	dest := &stubSearcher{
		platform:   domain.PlatformYouTube,
		candidates: []domain.Track{ytTrack("", "Bohemian Rhapsody", "Queen", 354)},
	}

	res, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.NoError(t, err)
	assert.False(t, res.IsMatched())
}

func TestMatch_SearchFailureIsLookupFailed(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		err:      fmt.Errorf("youtube: %w", domain.ErrTransientNetwork),
	}

	_, err := New(DefaultConfig()).Match(context.Background(), dest, source)

	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindMatchLookupFailed, kind)
	assert.True(t, errors.Is(err, domain.ErrTransientNetwork))
}

func TestMatch_InvalidInput(t *testing.T) {
	dest := &stubSearcher{platform: domain.PlatformYouTube}
	m := New(DefaultConfig())

	_, err := m.Match(context.Background(), dest, domain.Track{Title: "  ", Platform: domain.PlatformSpotify})
	assert.ErrorIs(t, err, domain.ErrInvalidTrack)

	same := &stubSearcher{platform: domain.PlatformSpotify}
	_, err = m.Match(context.Background(), same, source)
	assert.ErrorIs(t, err, domain.ErrSamePlatform)

	assert.Empty(t, dest.queries)
	assert.Empty(t, same.queries)
}

func TestMatch_Idempotent(t *testing.T) {
	dest := &stubSearcher{
		platform: domain.PlatformYouTube,
		candidates: []domain.Track{
			ytTrack("yt-live", "Bohemian Rhapsody (Live Aid)", "Queen", 360),
			ytTrack("yt-1", "Bohemian Rhapsody", "Queen", 350),
		},
	}
	m := New(DefaultConfig())

	first, err := m.Match(context.Background(), dest, source)
	require.NoError(t, err)
	second, err := m.Match(context.Background(), dest, source)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNew_AppliesDefaults(t *testing.T) {
	m := New(Config{SearchLimit: 500})
	cfg := m.Config()

	assert.Equal(t, maxSearchLimit, cfg.SearchLimit)
	assert.Equal(t, DefaultMinScore, cfg.MinScore)
	assert.Equal(t, DefaultMaxDurationDelta, cfg.MaxDurationDelta)
	assert.Equal(t, defaultTitleWeight, cfg.TitleWeight)
}
