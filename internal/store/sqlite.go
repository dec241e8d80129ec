// ABOUTME: SQLite-backed event ledger using modernc.org/sqlite
// ABOUTME: Persists every accepted webhook event with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrEventNotFound is returned when a requested event does not exist
var ErrEventNotFound = errors.New("event not found")

// Event is one persisted webhook delivery.
type Event struct {
	ID        string
	Sender    string
	Text      string
	Raw       []byte // original webhook payload as delivered
	CreatedAt time.Time
}

// SQLiteStore persists accepted events to a SQLite database. It implements
// the bridge's Recorder interface.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			text TEXT NOT NULL,
			raw BLOB,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_created_at
			ON events(created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// SaveEvent persists one accepted webhook event.
func (s *SQLiteStore) SaveEvent(ctx context.Context, sender, text string, raw []byte) error {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, sender, text, raw, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, sender, text, raw, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}

	s.logger.Debug("saved event", "event_id", id, "sender", sender)
	return nil
}

// RecentEvents returns the most recent events, newest first.
// Limit defaults to 50 and is capped at 500.
func (s *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender, text, raw, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating event rows: %w", err)
	}

	return events, nil
}

// LatestEvent returns the most recently saved event, or ErrEventNotFound
// when the ledger is empty.
func (s *SQLiteStore) LatestEvent(ctx context.Context) (*Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sender, text, raw, created_at
		FROM events
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)

	event, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// CountEvents returns the total number of persisted events.
func (s *SQLiteStore) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// scanEvent reads one row into an Event using the given scan function.
func scanEvent(scan func(dest ...any) error) (*Event, error) {
	event := &Event{}
	var createdAt string

	if err := scan(&event.ID, &event.Sender, &event.Text, &event.Raw, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning event row: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp: %w", err)
	}
	event.CreatedAt = ts

	return event, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
