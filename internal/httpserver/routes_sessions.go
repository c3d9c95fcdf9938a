// internal/httpserver/routes_sessions.go
//
// HTTP routes for live word-catching sessions.
//   - POST   /sessions              → create a session for an exercise (ready phase)
//   - GET    /sessions/{id}         → snapshot for rendering
//   - POST   /sessions/{id}/start   → ready → playing
//   - POST   /sessions/{id}/pause   → playing → paused
//   - POST   /sessions/{id}/resume  → paused → playing
//   - POST   /sessions/{id}/hit     → catch a word by id
//   - POST   /sessions/{id}/type    → catch the lowest word spelled like the input
//   - DELETE /sessions/{id}         → tear down (timers released, no completion)
//
// The simulation runs server-side; clients poll snapshots. When a session is
// won or lost its result is persisted in the background; finished sessions
// stay readable until the idle sweeper evicts them.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/exercises"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/loop"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/results"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/store"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

// mountSessions registers all /sessions routes.
func (s *Server) mountSessions(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.handleNewSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.handleSnapshot))
			r.Post("/start", s.withSession(s.command((*loop.Runner).Start)))
			r.Post("/pause", s.withSession(s.command((*loop.Runner).Pause)))
			r.Post("/resume", s.withSession(s.command((*loop.Runner).Resume)))
			r.Post("/hit", s.withSession(s.handleHit))
			r.Post("/type", s.withSession(s.handleType))
			r.Delete("/", s.handleDeleteSession)
		})
	})
}

// newSessionReq is the payload for POST /sessions.
type newSessionReq struct {
	ExerciseID string `json:"exerciseId"`
	Seed       int64  `json:"seed,omitempty"` // 0 uses the configured seed
}

// sessionView is returned by every session endpoint.
type sessionView struct {
	SessionID  string        `json:"sessionId"`
	ExerciseID string        `json:"exerciseId"`
	PlayerID   string        `json:"playerId"`
	Snapshot   loop.Snapshot `json:"snapshot"`
}

func viewOf(sess *store.Session) sessionView {
	return sessionView{
		SessionID:  sess.ID,
		ExerciseID: sess.ExerciseID,
		PlayerID:   sess.PlayerID,
		Snapshot:   sess.Runner.Snapshot(),
	}
}

func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	var req newSessionReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	ex, err := s.exercises.Get(r.Context(), req.ExerciseID)
	if errors.Is(err, exercises.ErrNotFound) {
		http.Error(w, `{"error":"exercise_not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("load exercise")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}

	sess := store.NewSession(ex.ID, s.playerID(w, r), nil)
	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Seed
	}
	logger := log.With().Str("session", sess.ID).Str("player", sess.PlayerID).Logger()
	sess.Runner = loop.New(ex, loop.Options{
		Config:        s.cfg.Game,
		Seed:          seed,
		FrameInterval: s.cfg.FrameInterval,
		FallbackPool:  words.Bank(),
		Handlers:      loop.Handlers{OnComplete: s.recordResult(sess.ID, sess.ExerciseID, sess.PlayerID, sess.CreatedAt)},
		Logger:        &logger,
	})

	if err := s.sessions.Save(r.Context(), sess); err != nil {
		sess.Runner.Close()
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(viewOf(sess))
}

// recordResult returns the completion callback of a session. The insert runs
// on its own goroutine so the tick that ended the session never waits on
// sqlite; Shutdown waits for it.
func (s *Server) recordResult(sessionID, exerciseID, playerID string, created time.Time) func(loop.Completion) {
	return func(c loop.Completion) {
		res := results.Result{
			SessionID:  sessionID,
			ExerciseID: exerciseID,
			PlayerID:   playerID,
			Score:      c.Score,
			Lives:      c.Lives,
			Outcome:    string(c.Phase),
			ElapsedMs:  s.now().Sub(created).Milliseconds(),
		}
		s.bg.Add(1)
		go func() {
			defer s.bg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.results.Insert(ctx, res); err != nil {
				log.Warn().Err(err).Str("session", sessionID).Msg("insert result")
			}
		}()
	}
}

// withSession resolves {id} into a live session.
func (s *Server) withSession(h func(http.ResponseWriter, *http.Request, *store.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			http.Error(w, `{"error":"session_not_found"}`, http.StatusNotFound)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	_ = json.NewEncoder(w).Encode(viewOf(sess))
}

// command adapts a lifecycle method of the runner into a handler.
func (s *Server) command(fn func(*loop.Runner) error) func(http.ResponseWriter, *http.Request, *store.Session) {
	return func(w http.ResponseWriter, r *http.Request, sess *store.Session) {
		if err := fn(sess.Runner); err != nil {
			writeRunnerError(w, err)
			return
		}
		_ = json.NewEncoder(w).Encode(viewOf(sess))
	}
}

type hitReq struct {
	WordID uint64 `json:"wordId"`
}

// handleHit catches a word by id. A word that already left the field is ignored.
func (s *Server) handleHit(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	var req hitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if err := sess.Runner.Hit(req.WordID); err != nil {
		writeRunnerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(viewOf(sess))
}

type typeReq struct {
	Text string `json:"text"`
}

type typeRes struct {
	Matched bool `json:"matched"`
	sessionView
}

// handleType catches the lowest in-flight word equal (case-insensitive) to text.
func (s *Server) handleType(w http.ResponseWriter, r *http.Request, sess *store.Session) {
	var req typeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	ok, err := sess.Runner.HitText(req.Text)
	if err != nil {
		writeRunnerError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(typeRes{Matched: ok, sessionView: viewOf(sess)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, `{"error":"session_not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// writeRunnerError maps runner sentinels to HTTP statuses.
func writeRunnerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, loop.ErrInvalidPhase):
		http.Error(w, `{"error":"invalid_phase"}`, http.StatusConflict)
	case errors.Is(err, loop.ErrClosed):
		http.Error(w, `{"error":"session_closed"}`, http.StatusGone)
	default:
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
	}
}
