package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

const defaultPlaylistName = "Transferred Playlist"

func cancelledError() error {
	return domain.NewTransferError(domain.KindCancelled, domain.ErrCancelled)
}

// execute runs fetching, matching and writing. It returns nil only when every
// matched track has been written.
func (s *Service) execute(ctx context.Context, r *jobRunner, source, target ports.PlatformClient, reuseID string, logger *log.Logger) error {
	if r.isCancelled() {
		return cancelledError()
	}

	// Step 1: Fetch the source playlist and its tracks
	if err := r.transition(domain.StateFetching); err != nil {
		return err
	}
	ref, tracks, err := s.fetch(ctx, r, source)
	if err != nil {
		return err
	}
	logger.Info("fetched source playlist", "name", ref.DisplayName, "tracks", len(tracks))

	if r.isCancelled() {
		return cancelledError()
	}

	// Step 2: Match every track on the destination using the worker pool
	if err := r.transition(domain.StateMatching); err != nil {
		return err
	}
	results, err := s.matchAll(ctx, r, target, tracks, logger)
	if err != nil {
		return err
	}

	var matchedIDs []string
	for _, res := range results {
		if res.IsMatched() {
			matchedIDs = append(matchedIDs, res.Matched.PlatformID)
		}
	}
	logger.Info("matching complete", "matched", len(matchedIDs), "unmatched", len(tracks)-len(matchedIDs))

	if r.isCancelled() {
		return cancelledError()
	}

	// Step 3: Create or resolve the destination, then write matched tracks.
	// A destination failure fails the job from matching.
	dest, err := s.destination(ctx, r, source.Platform(), ref, target, reuseID)
	if err != nil {
		return err
	}
	logger.Info("destination ready", "playlist", dest.ID, "reused", reuseID != "")

	if r.isCancelled() {
		s.settleMatched(r)
		return cancelledError()
	}

	if err := r.transition(domain.StateWriting); err != nil {
		return err
	}

	return s.write(ctx, r, target, dest.ID, matchedIDs, logger)
}

func (s *Service) fetch(ctx context.Context, r *jobRunner, source ports.PlatformClient) (domain.PlaylistRef, []domain.Track, error) {
	playlistID := r.snapshot().SourceRef.ID

	var ref domain.PlaylistRef
	err := s.retry(ctx, s.opts.FetchAttempts, func() error {
		var err error
		ref, err = source.GetPlaylist(ctx, playlistID)
		return err
	})
	if err != nil {
		return ref, nil, domain.NewTransferError(domain.KindSourceFetchFailed, fmt.Errorf("get playlist %s: %w", playlistID, err))
	}

	var tracks []domain.Track
	err = s.retry(ctx, s.opts.FetchAttempts, func() error {
		var err error
		tracks, err = source.GetPlaylistTracks(ctx, playlistID)
		return err
	})
	if err != nil {
		return ref, nil, domain.NewTransferError(domain.KindSourceFetchFailed, fmt.Errorf("get tracks of %s: %w", playlistID, err))
	}

	ref.Platform = source.Platform()
	ref.ID = playlistID
	ref.TrackCount = len(tracks)
	r.update(func(j *domain.TransferJob) {
		j.SourceRef = ref
		j.TotalTracks = len(tracks)
	})
	return ref, tracks, nil
}

// matchAll resolves tracks concurrently on s.opts.Workers goroutines and
// returns results in source order. Dispatch stops when the job is cancelled
// or a lookup fails in a way that no other track can recover from.
func (s *Service) matchAll(ctx context.Context, r *jobRunner, target ports.PlatformClient, tracks []domain.Track, logger *log.Logger) ([]domain.MatchResult, error) {
	type item struct {
		index int
		track domain.Track
	}

	results := make([]domain.MatchResult, len(tracks))
	trackCh := make(chan item)

	var (
		fatalOnce sync.Once
		fatalErr  error
		stop      = make(chan struct{})
	)
	abort := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			close(stop)
		})
	}

	// Launch worker goroutines
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			wlog := logger.With("worker", workerID)
			for it := range trackCh {
				if r.isCancelled() {
					continue
				}
				select {
				case <-stop:
					continue
				default:
				}

				res, err := s.matchTrack(ctx, target, it.track, wlog)
				if err != nil {
					abort(err)
					continue
				}

				results[it.index] = res
				r.update(func(j *domain.TransferJob) {
					j.ProcessedCount++
					if res.IsMatched() {
						j.MatchedCount++
					}
				})
			}
		}(i)
	}

	// Feed tracks one at a time so cancellation is seen before each dispatch
dispatch:
	for i, track := range tracks {
		if r.isCancelled() {
			break
		}
		select {
		case trackCh <- item{index: i, track: track}:
		case <-stop:
			break dispatch
		}
	}
	close(trackCh)
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	if r.isCancelled() {
		return nil, cancelledError()
	}
	return results, nil
}

// matchTrack resolves one track. Lookup failures leave the track unmatched
// unless the destination rejected the credentials, which fails the job.
func (s *Service) matchTrack(ctx context.Context, target ports.PlatformClient, track domain.Track, logger *log.Logger) (domain.MatchResult, error) {
	var res domain.MatchResult
	err := s.retry(ctx, s.opts.LookupRetries+1, func() error {
		var err error
		res, err = s.matcher.Match(ctx, target, track)
		return err
	})

	switch {
	case err == nil:
		if res.IsMatched() {
			logger.Debug("matched", "artist", track.Artist, "title", track.Title, "id", res.Matched.PlatformID, "score", *res.Confidence)
		} else {
			logger.Debug("not found", "artist", track.Artist, "title", track.Title)
		}
		return res, nil
	case errors.Is(err, domain.ErrNotAuthenticated):
		return res, err
	default:
		logger.Warn("lookup failed, leaving unmatched", "artist", track.Artist, "title", track.Title, "err", err)
		return domain.MatchResult{Source: track}, nil
	}
}

// destination resolves the reused playlist or creates a new one, and records
// it on the job.
func (s *Service) destination(ctx context.Context, r *jobRunner, sourcePlatform domain.Platform, ref domain.PlaylistRef, target ports.PlatformClient, reuseID string) (domain.PlaylistRef, error) {
	var dest domain.PlaylistRef
	var err error

	if reuseID != "" {
		err = s.retry(ctx, s.opts.FetchAttempts, func() error {
			dest, err = target.GetPlaylist(ctx, reuseID)
			return err
		})
		if err != nil {
			return dest, domain.NewTransferError(domain.KindDestinationCreateFailed, fmt.Errorf("resolve destination %s: %w", reuseID, err))
		}
		dest.ID = reuseID
	} else {
		name := ref.DisplayName
		if name == "" {
			name = defaultPlaylistName
		}
		description := fmt.Sprintf("Transferred from %s playlist %q (%s) using PlaylistTransfer", sourcePlatform.DisplayName(), name, ref.ID)

		// Creation is not idempotent, so only throttling is retried.
		err = backoff.Retry(func() error {
			dest, err = target.CreatePlaylist(ctx, name, description)
			if err == nil || errors.Is(err, domain.ErrRateLimited) {
				return err
			}
			return backoff.Permanent(err)
		}, backoff.WithContext(backoff.WithMaxRetries(s.opts.Backoff(), uint64(s.opts.WriteAttempts-1)), ctx))
		if err != nil {
			return dest, domain.NewTransferError(domain.KindDestinationCreateFailed, fmt.Errorf("create playlist %q: %w", name, err))
		}
		if err := s.claim(r, target.Platform(), dest.ID); err != nil {
			return dest, domain.NewTransferError(domain.KindDestinationCreateFailed, err)
		}
	}

	dest.Platform = target.Platform()
	r.update(func(j *domain.TransferJob) {
		ref := dest
		j.TargetRef = &ref
	})
	return dest, nil
}

// write appends ids in order, in batches no larger than the platform allows.
// A batch that keeps failing after retries fails the job; the retries only
// resend the part of the batch the platform has not acknowledged.
func (s *Service) write(ctx context.Context, r *jobRunner, target ports.PlatformClient, playlistID string, ids []string, logger *log.Logger) error {
	size := s.opts.BatchSize
	if limit := target.BatchLimit(); limit > 0 && limit < size {
		size = limit
	}

	for start := 0; start < len(ids); start += size {
		if r.isCancelled() {
			s.settleMatched(r)
			return cancelledError()
		}

		end := min(start+size, len(ids))
		pending := ids[start:end]

		err := s.retry(ctx, s.opts.WriteAttempts, func() error {
			added, err := target.AddTracks(ctx, playlistID, pending)
			added = min(max(added, 0), len(pending))
			if added > 0 {
				pending = pending[added:]
				r.update(func(j *domain.TransferJob) {
					j.WrittenCount += added
				})
			}
			if err == nil && len(pending) > 0 {
				return fmt.Errorf("%w: %d tracks not acknowledged", domain.ErrTransientNetwork, len(pending))
			}
			return err
		})
		if err != nil {
			s.settleMatched(r)
			return domain.NewTransferError(domain.KindBatchWriteFailed, fmt.Errorf("add tracks %d-%d to %s: %w", start, end, playlistID, err))
		}
		logger.Debug("batch written", "from", start, "to", end)
	}

	s.settleMatched(r)
	if r.isCancelled() {
		return cancelledError()
	}
	return nil
}

// settleMatched aligns MatchedCount with what actually reached the
// destination once writing stops.
func (s *Service) settleMatched(r *jobRunner) {
	r.update(func(j *domain.TransferJob) {
		j.MatchedCount = j.WrittenCount
	})
}
