// Package memory holds a process-local history store for development and
// tests. Records are lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// HistoryStore is an append-only in-memory ports.HistoryStore.
type HistoryStore struct {
	mu      sync.RWMutex
	records []domain.HistoryRecord
	ids     map[string]struct{}
}

var _ ports.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{ids: make(map[string]struct{})}
}

func (s *HistoryStore) Append(_ context.Context, record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[record.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
	}
	if record.CompletedAt != nil {
		t := *record.CompletedAt
		record.CompletedAt = &t
	}
	s.ids[record.ID] = struct{}{}
	s.records = append(s.records, record)
	return nil
}

// List returns userID's records newest first. Records created at the same
// instant are returned most recently appended first.
func (s *HistoryStore) List(_ context.Context, userID string) ([]domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.HistoryRecord{}
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.UserID != userID {
			continue
		}
		if rec.CompletedAt != nil {
			t := *rec.CompletedAt
			rec.CompletedAt = &t
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
