// Package knn persists phrase→intent examples with their embedding vectors
// and serves nearest-neighbour queries over them. The example set is small
// and human-curated (it grows one correction at a time), so search is a full
// scan with cosine similarity — no index structure.
package knn

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Embedder maps text to a fixed-length vector. Identical input must yield an
// identical vector for round-trip matching to work.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one search result, most similar first.
type Match struct {
	Similarity float64
	Intent     string
	Phrase     string
	Slots      map[string]any
}

// Store is the durable example corpus. Examples are append-only: corrections
// add new rows, nothing is ever rewritten.
//
// Store is safe for concurrent use; the underlying *sql.DB serialises access.
type Store struct {
	db    *sql.DB
	embed Embedder
}

// epsilon guards the cosine denominator against zero-norm stored vectors.
const epsilon = 1e-9

// New creates a Store on db and ensures the examples schema exists. The db is
// owned by the caller and typically shared with the event store.
func New(db *sql.DB, embed Embedder) (*Store, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS examples (
			id INTEGER PRIMARY KEY,
			phrase TEXT NOT NULL,
			intent TEXT NOT NULL,
			slots_json TEXT,
			embedding BLOB,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS ix_examples_intent ON examples(intent);`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("knn: init schema: %w", err)
	}
	return &Store{db: db, embed: embed}, nil
}

// Add computes the embedding for phrase and appends a new example. A failed
// insert is surfaced as an error rather than dropped: losing an example
// silently would degrade future matching quality.
func (s *Store) Add(ctx context.Context, phrase, intentName string, slots map[string]any) error {
	vec, err := s.embed.Embed(ctx, phrase)
	if err != nil {
		return fmt.Errorf("knn: embed %q: %w", phrase, err)
	}
	slotsJSON, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("knn: marshal slots: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO examples (phrase, intent, slots_json, embedding) VALUES (?, ?, ?, ?)",
		phrase, intentName, string(slotsJSON), encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("knn: insert example: %w", err)
	}
	return nil
}

// Search embeds phrase and returns the k most similar stored examples by
// cosine similarity, descending. A zero-norm query or an empty store yields
// an empty result; stored zero-norm vectors are skipped.
func (s *Store) Search(ctx context.Context, phrase string, k int) ([]Match, error) {
	q, err := s.embed.Embed(ctx, phrase)
	if err != nil {
		return nil, fmt.Errorf("knn: embed query: %w", err)
	}
	qNorm := norm(q)
	if qNorm == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT phrase, intent, slots_json, embedding FROM examples")
	if err != nil {
		return nil, fmt.Errorf("knn: scan examples: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			ex        Match
			slotsJSON sql.NullString
			blob      []byte
		)
		if err := rows.Scan(&ex.Phrase, &ex.Intent, &slotsJSON, &blob); err != nil {
			return nil, fmt.Errorf("knn: scan row: %w", err)
		}
		if len(blob) == 0 {
			continue
		}
		vec := decodeVector(blob)
		n := norm(vec)
		if n == 0 {
			continue
		}
		ex.Similarity = dot(q, vec) / (qNorm*n + epsilon)
		ex.Slots = map[string]any{}
		if slotsJSON.Valid && slotsJSON.String != "" {
			if err := json.Unmarshal([]byte(slotsJSON.String), &ex.Slots); err != nil {
				return nil, fmt.Errorf("knn: decode slots for %q: %w", ex.Phrase, err)
			}
		}
		matches = append(matches, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knn: iterate examples: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Count returns the number of stored examples.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM examples").Scan(&n); err != nil {
		return 0, fmt.Errorf("knn: count examples: %w", err)
	}
	return n, nil
}

// encodeVector packs a float32 vector as little-endian bytes, 4 per element.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Trailing partial elements are
// ignored.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec
}

func dot(a, b []float32) float64 {
	n := min(len(a), len(b))
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}
