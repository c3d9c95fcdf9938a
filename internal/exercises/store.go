// internal/exercises/store.go
//
// SQLite-backed exercise catalogue.
// Exercises are stored whole as JSON (the same shape the hosting page posts),
// keyed by id, with the title lifted into its own column for listings.

package exercises

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
)

// ErrNotFound is returned when no exercise has the requested id.
var ErrNotFound = errors.New("exercises: not found")

// Summary is one catalogue listing row.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"createdAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Put inserts or replaces ex. An empty id is assigned a new UUID; the stored
// id is returned.
func (s *Store) Put(ctx context.Context, ex game.Exercise) (string, error) {
	ex.ID = strings.TrimSpace(ex.ID)
	if ex.ID == "" {
		ex.ID = uuid.NewString()
	}
	payload, err := json.Marshal(ex)
	if err != nil {
		return "", fmt.Errorf("encode exercise %s: %w", ex.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO exercises (id, title, payload) VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET title=excluded.title, payload=excluded.payload`,
		ex.ID, ex.Title, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("put exercise %s: %w", ex.ID, err)
	}
	return ex.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (game.Exercise, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM exercises WHERE id=?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Exercise{}, ErrNotFound
	}
	if err != nil {
		return game.Exercise{}, err
	}
	var ex game.Exercise
	if err := json.Unmarshal([]byte(payload), &ex); err != nil {
		return game.Exercise{}, fmt.Errorf("decode exercise %s: %w", id, err)
	}
	ex.ID = id
	return ex, nil
}

// List returns summaries ordered by creation time, then id.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, created_at FROM exercises ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var r Summary
		if err := rows.Scan(&r.ID, &r.Title, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IDs returns every exercise id in a stable order (used for the daily pick).
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM exercises ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Seed inserts exercises that are not yet present; existing rows are left
// untouched. It returns how many were added.
func (s *Store) Seed(ctx context.Context, list []game.Exercise) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	added := 0
	for _, ex := range list {
		if strings.TrimSpace(ex.ID) == "" {
			return 0, fmt.Errorf("seed exercise %q: missing id", ex.Title)
		}
		payload, err := json.Marshal(ex)
		if err != nil {
			return 0, err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO exercises (id, title, payload) VALUES (?, ?, ?)`,
			ex.ID, ex.Title, string(payload))
		if err != nil {
			return 0, fmt.Errorf("seed exercise %s: %w", ex.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	return added, tx.Commit()
}

// SeedFromJSON decodes a JSON array of exercises and seeds them.
func (s *Store) SeedFromJSON(ctx context.Context, raw []byte) (int, error) {
	var list []game.Exercise
	if err := json.Unmarshal(raw, &list); err != nil {
		return 0, fmt.Errorf("decode seed exercises: %w", err)
	}
	return s.Seed(ctx, list)
}
