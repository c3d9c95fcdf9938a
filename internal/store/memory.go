// internal/store/memory.go
//
// In-memory registry of live word-catching sessions.
// Each session owns a loop.Runner (its timers and state); the registry only
// tracks who started it and when.
//
// Characteristics:
//   - Stores *Session objects keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Delete tears the runner down so no timer outlives its session.
//   - Prune evicts idle sessions (not ticking, untouched since a cutoff) so
//     finished or abandoned play-throughs do not pile up.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/loop"
)

// ErrNotFound is returned when no session has the requested ID.
var ErrNotFound = errors.New("store: session not found")

// Session is one live play-through of an exercise.
type Session struct {
	ID         string       `json:"id"`
	ExerciseID string       `json:"exerciseId"`
	PlayerID   string       `json:"playerId"`
	Runner     *loop.Runner `json:"-"`
	CreatedAt  time.Time    `json:"createdAt"`

	lastSeen atomic.Int64 // unix nanos of the latest Get or Touch
}

// NewSession wraps r with a fresh random ID.
func NewSession(exerciseID, playerID string, r *loop.Runner) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		ExerciseID: exerciseID,
		PlayerID:   playerID,
		Runner:     r,
		CreatedAt:  time.Now().UTC(),
	}
	s.Touch(s.CreatedAt)
	return s
}

// Touch records activity on the session at t.
func (s *Session) Touch(t time.Time) { s.lastSeen.Store(t.UnixNano()) }

// LastSeen returns the time of the latest recorded activity.
func (s *Session) LastSeen() time.Time { return time.Unix(0, s.lastSeen.Load()) }

// idle reports whether nothing has happened on s since cutoff and its runner
// is not ticking.
func (s *Session) idle(cutoff time.Time) bool {
	if s.Runner != nil && s.Runner.Running() {
		return false
	}
	return s.LastSeen().Before(cutoff)
}

// Store defines the registry interface for live sessions.
type Store interface {
	// Save adds or replaces a session.
	Save(ctx context.Context, s *Session) error

	// Get retrieves a session by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session and closes its runner, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns all sessions, oldest first.
	List(ctx context.Context) ([]*Session, error)

	// Prune closes and removes every session idle since cutoff and returns
	// how many were removed.
	Prune(ctx context.Context, cutoff time.Time) int

	// CloseAll tears down every session (server shutdown).
	CloseAll()
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu       sync.RWMutex        // guards sessions map
	sessions map[string]*Session // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{sessions: make(map[string]*Session)}
}

// Save adds or updates the session in the map. A replaced session with a
// different runner is closed.
func (m *memory) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	prev := m.sessions[s.ID]
	m.sessions[s.ID] = s
	m.mu.Unlock()
	if prev != nil && prev.Runner != nil && prev.Runner != s.Runner {
		prev.Runner.Close()
	}
	return nil
}

// Get looks up a session by ID.
func (m *memory) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[id]; ok {
		s.Touch(time.Now())
		return s, nil
	}
	return nil, ErrNotFound
}

// Delete removes the session; its runner is closed outside the lock since
// Close waits for the tick goroutine.
func (m *memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	if s.Runner != nil {
		s.Runner.Close()
	}
	return nil
}

func (m *memory) List(ctx context.Context) ([]*Session, error) {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memory) Prune(ctx context.Context, cutoff time.Time) int {
	var stale []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.idle(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		if s.Runner != nil {
			s.Runner.Close()
		}
	}
	return len(stale)
}

func (m *memory) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range all {
		if s.Runner != nil {
			s.Runner.Close()
		}
	}
}
