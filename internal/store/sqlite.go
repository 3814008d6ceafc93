package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/timerd/internal/timer"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore creates a new SQLite-based snapshot store.
// Use ":memory:" for an in-memory database, or a file path for persistence.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS timers (
		id TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		end_at INTEGER,
		remaining INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Put writes or replaces the snapshot for a timer id.
func (s *SQLiteStore) Put(ctx context.Context, id string, snap timer.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endAt sql.NullInt64
	if snap.EndAt != nil {
		endAt = sql.NullInt64{Int64: snap.EndAt.UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timers (id, state, end_at, remaining, duration, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   state = excluded.state,
		   end_at = excluded.end_at,
		   remaining = excluded.remaining,
		   duration = excluded.duration,
		   updated_at = excluded.updated_at`,
		id, string(snap.State), endAt, int64(snap.Remaining), int64(snap.Duration),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	return nil
}

// Get retrieves the snapshot for a timer id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*timer.Snapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT state, end_at, remaining, duration FROM timers WHERE id = ?", id)

	snap, err := scanSnapshot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query snapshot: %w", err)
	}

	return snap, true, nil
}

// Delete removes the snapshot for a timer id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM timers WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// All returns every stored snapshot keyed by timer id.
func (s *SQLiteStore) All(ctx context.Context) (map[string]timer.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, state, end_at, remaining, duration FROM timers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make(map[string]timer.Snapshot)
	for rows.Next() {
		var id string
		snap, err := scanSnapshot(func(dest ...any) error {
			return rows.Scan(append([]any{&id}, dest...)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out[id] = *snap
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}

func scanSnapshot(scan func(dest ...any) error) (*timer.Snapshot, error) {
	var (
		state     string
		endAt     sql.NullInt64
		remaining int64
		duration  int64
	)
	if err := scan(&state, &endAt, &remaining, &duration); err != nil {
		return nil, err
	}

	snap := &timer.Snapshot{
		State:     timer.State(state),
		Remaining: time.Duration(remaining),
		Duration:  time.Duration(duration),
	}
	if endAt.Valid {
		t := time.Unix(0, endAt.Int64).UTC()
		snap.EndAt = &t
	}
	return snap, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
