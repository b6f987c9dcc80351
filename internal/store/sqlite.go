package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ashureev/portal-gateway/internal/domain"
	"github.com/ashureev/portal-gateway/internal/shared"
)

const (
	// DefaultRecentLimit is used when Recent is called with limit <= 0.
	DefaultRecentLimit = 50
	// MaxRecentLimit caps a single Recent query.
	MaxRecentLimit = 500
)

// SQLiteJournal implements Journal using SQLite.
type SQLiteJournal struct {
	db    *sql.DB
	now   func() time.Time
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed journal.
func NewSQLite(dbPath string) (*SQLiteJournal, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// modernc applies _pragma values on every new pool connection.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	j := &SQLiteJournal{db: db, now: time.Now, retry: shared.DefaultRetryPolicy}
	if err := j.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return j, nil
}

func (j *SQLiteJournal) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS message_events (
		id TEXT PRIMARY KEY,
		phone TEXT NOT NULL,
		direction TEXT NOT NULL,
		content TEXT NOT NULL,
		state_before TEXT NOT NULL,
		state_after TEXT NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_message_events_phone ON message_events(phone, created_at);
	CREATE INDEX IF NOT EXISTS idx_message_events_created ON message_events(created_at);
	`
	if _, err := j.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (j *SQLiteJournal) Ping(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Record appends an event, retrying when the database is locked.
func (j *SQLiteJournal) Record(ctx context.Context, ev *domain.MessageEvent) error {
	if ev.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate event id: %w", err)
		}
		ev.ID = id.String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = j.now()
	}

	query := `
	INSERT INTO message_events (id, phone, direction, content, state_before, state_after, delivered, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	return shared.RetryOnConflict(ctx, "record message event", j.retry, func() error {
		_, err := j.db.ExecContext(ctx, query,
			ev.ID, ev.Phone, string(ev.Direction), ev.Content,
			string(ev.StateBefore), string(ev.StateAfter),
			ev.Delivered, ev.CreatedAt.UnixMilli(),
		)
		return err
	})
}

// Recent returns the latest events for phone in chronological order.
func (j *SQLiteJournal) Recent(ctx context.Context, phone string, limit int) ([]domain.MessageEvent, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}

	query := `
		SELECT id, phone, direction, content, state_before, state_after, delivered, created_at
		FROM message_events WHERE phone = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	rows, err := j.db.QueryContext(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("query message events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close message event rows", "error", closeErr)
		}
	}()

	events := make([]domain.MessageEvent, 0, limit)
	for rows.Next() {
		var (
			ev                       domain.MessageEvent
			direction, before, after string
			createdAt                int64
		)
		if err := rows.Scan(&ev.ID, &ev.Phone, &direction, &ev.Content, &before, &after, &ev.Delivered, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message event row: %w", err)
		}
		ev.Direction = domain.Direction(direction)
		ev.StateBefore = domain.State(before)
		ev.StateAfter = domain.State(after)
		ev.CreatedAt = time.UnixMilli(createdAt)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message events: %w", err)
	}

	for l, r := 0, len(events)-1; l < r; l, r = l+1, r-1 {
		events[l], events[r] = events[r], events[l]
	}
	return events, nil
}

// Prune removes events older than retention.
func (j *SQLiteJournal) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := j.now().Add(-retention).UnixMilli()
	var deleted int64
	err := shared.RetryOnConflict(ctx, "prune message events", j.retry, func() error {
		result, err := j.db.ExecContext(ctx, `DELETE FROM message_events WHERE created_at < ?`, threshold)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
