package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/adapters"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/matcher"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

const (
	DefaultWorkers       = 5
	MaxWorkers           = 16
	DefaultBatchSize     = 100
	DefaultWriteAttempts = 3
	DefaultFetchAttempts = 3
	DefaultLookupRetries = 1
	DefaultJobRetention  = time.Hour

	progressBuffer = 64
)

// Recorder persists terminal jobs and lists past transfers.
type Recorder interface {
	Record(ctx context.Context, job domain.TransferJob) (domain.HistoryRecord, error)
	List(ctx context.Context, userID string) ([]domain.HistoryRecord, error)
}

// Options tunes the transfer pipeline. Zero values select defaults.
type Options struct {
	// Workers is the number of concurrent track lookups per job.
	Workers int
	// BatchSize caps AddTracks calls below the platform's own batch limit.
	BatchSize int
	// WriteAttempts is the number of tries per batch write and per
	// destination playlist creation.
	WriteAttempts int
	// FetchAttempts is the number of tries per source read.
	FetchAttempts int
	// LookupRetries is the number of extra tries for a failed track search.
	// Negative disables retries.
	LookupRetries int
	// JobRetention is how long finished jobs remain queryable.
	JobRetention time.Duration

	Backoff func() backoff.BackOff
	Logger  *log.Logger
	Now     func() time.Time
	NewID   func() string
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	if o.Workers > MaxWorkers {
		o.Workers = MaxWorkers
	}
	if o.BatchSize < 1 {
		o.BatchSize = DefaultBatchSize
	}
	if o.WriteAttempts < 1 {
		o.WriteAttempts = DefaultWriteAttempts
	}
	if o.FetchAttempts < 1 {
		o.FetchAttempts = DefaultFetchAttempts
	}
	switch {
	case o.LookupRetries == 0:
		o.LookupRetries = DefaultLookupRetries
	case o.LookupRetries < 0:
		o.LookupRetries = 0
	}
	if o.JobRetention <= 0 {
		o.JobRetention = DefaultJobRetention
	}
	if o.Backoff == nil {
		o.Backoff = DefaultBackoff
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	return o
}

// Service implements ports.TransferService. Each job runs in its own
// goroutine and fans track lookups out to a worker pool.
type Service struct {
	registry *adapters.ProviderRegistry
	matcher  *matcher.Matcher
	recorder Recorder
	opts     Options
	logger   *log.Logger

	mu     sync.Mutex
	jobs   map[string]*jobRunner
	claims map[string]string
	closed bool
	wg     sync.WaitGroup
}

var _ ports.TransferService = (*Service)(nil)

// NewService creates a transfer service over the given platform registry,
// track matcher and history recorder.
func NewService(registry *adapters.ProviderRegistry, m *matcher.Matcher, recorder Recorder, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		registry: registry,
		matcher:  m,
		recorder: recorder,
		opts:     opts,
		logger:   opts.Logger.WithPrefix("transfer"),
		jobs:     make(map[string]*jobRunner),
		claims:   make(map[string]string),
	}
}

func claimKey(platform domain.Platform, playlistID string) string {
	return string(platform) + ":" + playlistID
}

// Start validates req, registers a job and runs it in the background. The
// returned snapshot is in the created state.
func (s *Service) Start(ctx context.Context, req domain.StartRequest) (domain.TransferJob, error) {
	if !req.SourcePlatform.Valid() {
		return domain.TransferJob{}, fmt.Errorf("%w: source %q", domain.ErrUnknownPlatform, req.SourcePlatform)
	}
	if !req.TargetPlatform.Valid() {
		return domain.TransferJob{}, fmt.Errorf("%w: target %q", domain.ErrUnknownPlatform, req.TargetPlatform)
	}
	if req.SourcePlatform == req.TargetPlatform {
		return domain.TransferJob{}, domain.ErrSamePlatform
	}
	if strings.TrimSpace(req.SourcePlaylistID) == "" {
		return domain.TransferJob{}, fmt.Errorf("%w: playlist id is required", domain.ErrInvalidArgument)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return domain.TransferJob{}, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}

	source, err := s.registry.Connect(req.SourcePlatform, req.SourceToken)
	if err != nil {
		return domain.TransferJob{}, fmt.Errorf("source provider error: %w", err)
	}
	target, err := s.registry.Connect(req.TargetPlatform, req.TargetToken)
	if err != nil {
		return domain.TransferJob{}, fmt.Errorf("destination provider error: %w", err)
	}

	job := domain.TransferJob{
		ID:     s.opts.NewID(),
		UserID: req.UserID,
		SourceRef: domain.PlaylistRef{
			Platform: req.SourcePlatform,
			ID:       req.SourcePlaylistID,
		},
		TargetPlatform: req.TargetPlatform,
		State:          domain.StateCreated,
		CreatedAt:      s.opts.Now(),
	}
	runner := newJobRunner(job, progressBuffer)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.TransferJob{}, domain.ErrServiceClosed
	}
	s.pruneLocked(job.CreatedAt)
	if req.TargetPlaylistID != "" {
		key := claimKey(req.TargetPlatform, req.TargetPlaylistID)
		if holder, busy := s.claims[key]; busy {
			s.mu.Unlock()
			return domain.TransferJob{}, fmt.Errorf("%w: %s held by job %s", domain.ErrTargetBusy, req.TargetPlaylistID, holder)
		}
		s.claims[key] = job.ID
		runner.claims = append(runner.claims, key)
	}
	s.jobs[job.ID] = runner
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.Info("transfer started",
		"job", job.ID,
		"user", job.UserID,
		"source", req.SourcePlatform,
		"playlist", req.SourcePlaylistID,
		"target", req.TargetPlatform,
	)

	snap := runner.snapshot()
	go s.run(context.WithoutCancel(ctx), runner, source, target, req.TargetPlaylistID)
	return snap, nil
}

// Snapshot returns a copy of the job's current state.
func (s *Service) Snapshot(jobID string) (domain.TransferJob, error) {
	r, err := s.lookup(jobID)
	if err != nil {
		return domain.TransferJob{}, err
	}
	return r.snapshot(), nil
}

// Cancel flags the job for cancellation. The pipeline notices the flag before
// the next track is dispatched or the next batch is written. Cancelling a
// finished job is a no-op.
func (s *Service) Cancel(jobID string) error {
	r, err := s.lookup(jobID)
	if err != nil {
		return err
	}
	if r.snapshot().State.IsTerminal() {
		return nil
	}
	if r.cancelled.CompareAndSwap(false, true) {
		s.logger.Info("transfer cancellation requested", "job", jobID)
	}
	return nil
}

// Subscribe streams progress for a job. The channel first carries the current
// snapshot and is closed after the job reaches a terminal state.
func (s *Service) Subscribe(jobID string) (<-chan domain.Progress, func(), error) {
	r, err := s.lookup(jobID)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := r.subscribe()
	return ch, unsubscribe, nil
}

// Wait blocks until the job is terminal and its history has been recorded,
// or until ctx is done.
func (s *Service) Wait(ctx context.Context, jobID string) (domain.TransferJob, error) {
	r, err := s.lookup(jobID)
	if err != nil {
		return domain.TransferJob{}, err
	}
	select {
	case <-r.done:
		return r.snapshot(), nil
	case <-ctx.Done():
		return r.snapshot(), ctx.Err()
	}
}

// ListPlaylists returns the playlists of userID on platform.
func (s *Service) ListPlaylists(ctx context.Context, platform domain.Platform, token string, userID string) ([]domain.PlaylistRef, error) {
	client, err := s.registry.Connect(platform, token)
	if err != nil {
		return nil, err
	}
	return client.ListPlaylists(ctx, userID)
}

// History returns userID's past transfers newest first.
func (s *Service) History(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	return s.recorder.List(ctx, userID)
}

// Close stops accepting jobs, cancels the running ones and waits for them to
// finish recording.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	for _, r := range s.jobs {
		r.cancelled.Store(true)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) lookup(jobID string) (*jobRunner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
	}
	return r, nil
}

// claim takes the destination lock for a playlist created by the job.
func (s *Service) claim(r *jobRunner, platform domain.Platform, playlistID string) error {
	key := claimKey(platform, playlistID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if holder, busy := s.claims[key]; busy && holder != r.id {
		return fmt.Errorf("%w: %s held by job %s", domain.ErrTargetBusy, playlistID, holder)
	}
	s.claims[key] = r.id
	r.claims = append(r.claims, key)
	return nil
}

func (s *Service) release(r *jobRunner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range r.claims {
		if s.claims[key] == r.id {
			delete(s.claims, key)
		}
	}
	r.claims = nil
}

// pruneLocked forgets finished jobs older than the retention window.
func (s *Service) pruneLocked(now time.Time) {
	for id, r := range s.jobs {
		if r.expired(now, s.opts.JobRetention) {
			delete(s.jobs, id)
		}
	}
}

// run drives one job to a terminal state and records it.
func (s *Service) run(ctx context.Context, r *jobRunner, source, target ports.PlatformClient, reuseID string) {
	defer s.wg.Done()

	logger := s.logger.With("job", r.id)

	err := s.execute(ctx, r, source, target, reuseID, logger)
	now := s.opts.Now()
	if err != nil {
		info := errorInfo(r.snapshot().State, err)
		r.finish(domain.StateFailed, info, now)
		logger.Error("transfer failed", "kind", info.Kind, "err", err)
	} else {
		r.finish(domain.StateCompleted, nil, now)
		final := r.snapshot()
		logger.Info("transfer complete",
			"written", final.WrittenCount,
			"total", final.TotalTracks,
			"playlist", final.TargetRef.ID,
		)
	}

	s.release(r)

	if _, err := s.recorder.Record(ctx, r.snapshot()); err != nil {
		logger.Error("failed to record history", "err", err)
	}
	r.close(s.opts.Now())
}

// errorInfo classifies err. Errors without a kind are attributed to the state
// the job was in when it failed.
func errorInfo(state domain.TransferState, err error) *domain.ErrorInfo {
	var te *domain.TransferError
	if errors.As(err, &te) {
		return te.Info()
	}

	kind := domain.KindSourceFetchFailed
	switch state {
	case domain.StateMatching:
		kind = domain.KindMatchLookupFailed
	case domain.StateWriting:
		kind = domain.KindBatchWriteFailed
	}
	return &domain.ErrorInfo{Kind: kind, Message: err.Error()}
}
