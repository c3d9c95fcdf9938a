// internal/httpserver/routes_exercises.go
//
// HTTP routes for the exercise catalogue.
//   - GET  /exercises                  → catalogue summaries
//   - POST /exercises                  → store an exercise, report authoring warnings
//   - GET  /exercises/daily            → today's exercise (deterministic per UTC day)
//   - GET  /exercises/{id}             → exercise + recovered gap targets + warnings
//   - GET  /exercises/{id}/leaderboard → best completed sessions + caller's personal best
//
// Authoring problems never reject an exercise; they are returned as warnings
// and the affected gaps are skipped during play.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/daily"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/exercises"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/results"
)

// mountExercises registers all /exercises routes.
func (s *Server) mountExercises(r chi.Router) {
	r.Route("/exercises", func(r chi.Router) {
		r.Get("/", s.handleListExercises)
		r.Post("/", s.handleCreateExercise)
		r.Get("/daily", s.handleDailyExercise)
		r.Get("/{id}", s.handleGetExercise)
		r.Get("/{id}/leaderboard", s.handleLeaderboard)
	})
}

// exerciseView is an exercise with its playable lines resolved.
type exerciseView struct {
	Exercise game.Exercise  `json:"exercise"`
	Lines    []game.Line    `json:"lines"`
	Warnings []game.Warning `json:"warnings"`
	Date     string         `json:"date,omitempty"` // set for the daily exercise
}

func newExerciseView(ex game.Exercise) exerciseView {
	lines, warnings := game.BuildLines(ex)
	if lines == nil {
		lines = []game.Line{}
	}
	if warnings == nil {
		warnings = []game.Warning{}
	}
	return exerciseView{Exercise: ex, Lines: lines, Warnings: warnings}
}

func (s *Server) handleListExercises(w http.ResponseWriter, r *http.Request) {
	list, err := s.exercises.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list exercises")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(list)
}

type createExerciseRes struct {
	ID       string         `json:"id"`
	Warnings []game.Warning `json:"warnings"`
}

func (s *Server) handleCreateExercise(w http.ResponseWriter, r *http.Request) {
	var ex game.Exercise
	if err := json.NewDecoder(r.Body).Decode(&ex); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	id, err := s.exercises.Put(r.Context(), ex)
	if err != nil {
		log.Error().Err(err).Msg("save exercise")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}
	ex.ID = id
	view := newExerciseView(ex)
	for _, wn := range view.Warnings {
		log.Warn().Str("exercise", id).Int("line", wn.LineIndex).Int("gap", wn.GapIndex).Msg(wn.Reason)
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createExerciseRes{ID: id, Warnings: view.Warnings})
}

func (s *Server) handleGetExercise(w http.ResponseWriter, r *http.Request) {
	ex, err := s.exercises.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, exercises.ErrNotFound) {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("get exercise")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(newExerciseView(ex))
}

// handleDailyExercise returns the exercise picked for today (UTC).
func (s *Server) handleDailyExercise(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	ids, err := s.exercises.IDs(r.Context())
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	id := daily.Pick(now, s.cfg.DailySalt, ids)
	if id == "" {
		http.Error(w, `{"error":"no_exercises"}`, http.StatusNotFound)
		return
	}
	ex, err := s.exercises.Get(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	view := newExerciseView(ex)
	view.Date = daily.DateKey(now)
	_ = json.NewEncoder(w).Encode(view)
}

// lbRes is returned by /exercises/{id}/leaderboard.
type lbRes struct {
	ExerciseID string          `json:"exerciseId"`
	Top        []results.LBRow `json:"top"`
	MyBest     *int            `json:"myBest,omitempty"` // caller's best score, if any
}

// handleLeaderboard returns the top results (default 20, max 100) and the
// caller's personal best.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	rows, err := s.results.Leaderboard(r.Context(), id, limit)
	if err != nil {
		http.Error(w, `{"error":"server_error"}`, http.StatusInternalServerError)
		return
	}
	res := lbRes{ExerciseID: id, Top: rows}
	if player := s.knownPlayer(r); player != "" {
		best, ok, err := s.results.BestScore(r.Context(), id, player)
		if err != nil {
			log.Warn().Err(err).Str("exercise", id).Msg("best score")
		} else if ok {
			res.MyBest = &best
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}
