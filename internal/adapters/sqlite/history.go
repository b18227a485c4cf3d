package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/jpp0ca/PlaylistTransfer-API/internal/domain"
	"github.com/jpp0ca/PlaylistTransfer-API/internal/ports"
)

// HistoryStore implements ports.HistoryStore. Records are only ever
// inserted; there is no update or delete path.
type HistoryStore struct {
	db *sql.DB
	mu sync.Mutex
}

var _ ports.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore wraps an open, migrated database.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append inserts record. A record with an existing ID is rejected with
// domain.ErrDuplicateRecord.
func (s *HistoryStore) Append(ctx context.Context, record domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var targetPlaylistID any
	if record.TargetPlaylistID != "" {
		targetPlaylistID = record.TargetPlaylistID
	}
	var errorKind any
	if record.ErrorKind != "" {
		errorKind = string(record.ErrorKind)
	}
	var completedAt any
	if record.CompletedAt != nil {
		completedAt = record.CompletedAt.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfer_history (
			id, user_id, source_platform, target_platform, source_playlist_id,
			target_playlist_id, songs_transferred, status, error_kind,
			created_at, completed_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		string(record.SourcePlatform),
		string(record.TargetPlatform),
		record.SourcePlaylistID,
		targetPlaylistID,
		record.SongsTransferred,
		string(record.Status),
		errorKind,
		record.CreatedAt.UTC(),
		completedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateRecord, record.ID)
		}
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// List returns userID's records newest first.
func (s *HistoryStore) List(ctx context.Context, userID string) ([]domain.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, user_id, source_platform, target_platform, source_playlist_id,
			target_playlist_id, songs_transferred, status, error_kind,
			created_at, completed_at
		FROM transfer_history
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := []domain.HistoryRecord{}
	for rows.Next() {
		var (
			rec              domain.HistoryRecord
			source, target   string
			status           string
			targetPlaylistID sql.NullString
			errorKind        sql.NullString
			createdAt        time.Time
			completedAt      sql.NullTime
		)
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &source, &target, &rec.SourcePlaylistID,
			&targetPlaylistID, &rec.SongsTransferred, &status, &errorKind,
			&createdAt, &completedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}

		rec.SourcePlatform = domain.Platform(source)
		rec.TargetPlatform = domain.Platform(target)
		rec.Status = domain.HistoryStatus(status)
		rec.TargetPlaylistID = targetPlaylistID.String
		rec.ErrorKind = domain.ErrorKind(errorKind.String)
		rec.CreatedAt = createdAt.UTC()
		if completedAt.Valid {
			t := completedAt.Time.UTC()
			rec.CompletedAt = &t
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return records, nil
}
