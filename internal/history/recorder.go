// Package history turns finished transfer jobs into durable history records.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// Recorder writes one record per terminal job to a HistoryStore.
type Recorder struct {
	store ports.HistoryStore
}

func NewRecorder(store ports.HistoryStore) *Recorder {
	return &Recorder{store: store}
}

// FromJob builds the history record for a terminal job. The record ID is the
// job ID, so a job can be recorded at most once.
func FromJob(job domain.TransferJob) domain.HistoryRecord {
	rec := domain.HistoryRecord{
		ID:               job.ID,
		UserID:           job.UserID,
		SourcePlatform:   job.SourceRef.Platform,
		TargetPlatform:   job.TargetPlatform,
		SourcePlaylistID: job.SourceRef.ID,
		SongsTransferred: job.WrittenCount,
		CreatedAt:        job.CreatedAt,
	}
	if job.TargetRef != nil {
		rec.TargetPlaylistID = job.TargetRef.ID
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		rec.CompletedAt = &t
	}

	switch job.State {
	case domain.StateCompleted:
		rec.Status = domain.HistoryCompleted
	case domain.StateFailed:
		rec.Status = domain.HistoryFailed
		if job.Error != nil {
			rec.ErrorKind = job.Error.Kind
		}
	default:
		rec.Status = domain.HistoryInProgress
	}
	return rec
}

// Record appends the record for job. Jobs that have not reached a terminal
// state are rejected.
func (r *Recorder) Record(ctx context.Context, job domain.TransferJob) (domain.HistoryRecord, error) {
	if !job.State.IsTerminal() {
		return domain.HistoryRecord{}, fmt.Errorf("%w: job %s is %s", domain.ErrJobNotTerminal, job.ID, job.State)
	}

	rec := FromJob(job)
	if err := r.store.Append(ctx, rec); err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("record job %s: %w", job.ID, err)
	}
	return rec, nil
}

// List returns userID's history newest first.
func (r *Recorder) List(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidArgument)
	}
	return r.store.List(ctx, userID)
}
