package queue

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	_ "modernc.org/sqlite"

	"github.com/flowpulse/flowpulse/internal/core/model"
)

// SQLiteStore persists queued intervals in an embedded SQLite database, one
// row per interval keyed by the interval's deterministic id. Save replaces
// the whole set in a transaction, mirroring the queue's
// load-at-startup/save-on-mutation lifecycle.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the queue database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS queued_intervals (
  id TEXT PRIMARY KEY,
  position INTEGER NOT NULL,
  payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queued_position ON queued_intervals(position);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create queue table: %w", err)
	}
	return nil
}

// Save replaces the persisted queue with the given intervals, in order.
func (s *SQLiteStore) Save(intervals []model.ActivityInterval) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM queued_intervals;`); err != nil {
		return fmt.Errorf("clear queue table: %w", err)
	}

	const stmt = `
INSERT INTO queued_intervals (id, position, payload)
VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET position = excluded.position, payload = excluded.payload;
`
	for i, interval := range intervals {
		payload, err := sonic.Marshal(interval)
		if err != nil {
			return fmt.Errorf("marshal interval %s: %w", interval.ID, err)
		}
		if _, err := tx.ExecContext(ctx, stmt, interval.ID, i, string(payload)); err != nil {
			return fmt.Errorf("insert interval %s: %w", interval.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Load returns all persisted intervals in enqueue order.
func (s *SQLiteStore) Load() ([]model.ActivityInterval, error) {
	rows, err := s.db.QueryContext(context.Background(), `
SELECT payload FROM queued_intervals ORDER BY position ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("query queue: %w", err)
	}
	defer rows.Close()

	var intervals []model.ActivityInterval
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan queued interval: %w", err)
		}
		var interval model.ActivityInterval
		if err := sonic.UnmarshalString(payload, &interval); err != nil {
			return nil, fmt.Errorf("decode queued interval: %w", err)
		}
		intervals = append(intervals, interval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue rows: %w", err)
	}
	return intervals, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
