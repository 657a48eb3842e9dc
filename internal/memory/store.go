// Package memory is the durable store for dispatched events and performer
// ratings. It shares one SQLite database with the example corpus; rows are
// append-only and read back only for the preferred-macro aggregate.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Event records one successful dispatch: what was said, how it was accepted,
// and exactly what went over the wire.
type Event struct {
	Intent  string
	Phrase  string
	Tier    string
	Slots   map[string]any
	Payload string // JSON rendering of the dispatched (key, value) pairs
}

// Store wraps the SQLite database holding events and ratings.
// Safe for concurrent use; *sql.DB serialises access.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the database at dir/takt.db, and
// ensures the events and ratings tables exist.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "takt.db"))
	if err != nil {
		return nil, fmt.Errorf("memory: open db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a throwaway in-memory database, for tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("memory: open in-memory db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			ts TEXT DEFAULT CURRENT_TIMESTAMP,
			intent TEXT,
			phrase TEXT,
			tier TEXT,
			slots_json TEXT,
			dispatched TEXT
		);
		CREATE TABLE IF NOT EXISTS ratings (
			id INTEGER PRIMARY KEY,
			ts TEXT DEFAULT CURRENT_TIMESTAMP,
			rating TEXT,
			macro_name TEXT
		);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("memory: init schema: %w", err)
	}
	return nil
}

// DB exposes the underlying handle so the example store can share the same
// database file.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// LogEvent appends a dispatch event.
func (s *Store) LogEvent(ctx context.Context, ev Event) error {
	slotsJSON, err := json.Marshal(ev.Slots)
	if err != nil {
		return fmt.Errorf("memory: marshal slots: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO events (intent, phrase, tier, slots_json, dispatched) VALUES (?, ?, ?, ?, ?)",
		ev.Intent, ev.Phrase, ev.Tier, string(slotsJSON), ev.Payload,
	)
	if err != nil {
		return fmt.Errorf("memory: insert event: %w", err)
	}
	return nil
}

// AddRating appends a rating, optionally attributed to the macro that was
// running when the performer gave it.
func (s *Store) AddRating(ctx context.Context, rating, macroName string) error {
	var name sql.NullString
	if macroName != "" {
		name = sql.NullString{String: macroName, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO ratings (rating, macro_name) VALUES (?, ?)",
		rating, name,
	)
	if err != nil {
		return fmt.Errorf("memory: insert rating: %w", err)
	}
	return nil
}

// PreferredMacros returns the macros most often rated gut or peak,
// descending by count, at most limit names.
func (s *Store) PreferredMacros(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT macro_name, COUNT(*) AS c
		FROM ratings
		WHERE rating IN ('gut', 'peak') AND macro_name IS NOT NULL
		GROUP BY macro_name
		ORDER BY c DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("memory: query preferred macros: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var (
			name string
			c    int
		)
		if err := rows.Scan(&name, &c); err != nil {
			return nil, fmt.Errorf("memory: scan preferred macro: %w", err)
		}
		if name != "" {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: iterate preferred macros: %w", err)
	}
	return names, nil
}
