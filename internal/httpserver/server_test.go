package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/robalobadob/wordcatch/apps/go-server/assets"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/config"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/db"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/store"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

const testSecret = "test_secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	if err := words.Init(); err != nil {
		t.Fatalf("words init: %v", err)
	}
	conn, err := db.Open(filepath.Join(t.TempDir(), "server.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	if err := db.Migrate(conn, assets.Migrations(), assets.MigrationsDir); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	g := game.DefaultConfig()
	g.BaseSpawnInterval = time.Hour
	g.MinSpawnInterval = time.Hour
	cfg := config.Config{
		ClientOrigin:  "http://localhost:5173",
		DailySalt:     "salt",
		JWTSecret:     testSecret,
		FrameInterval: time.Hour,
		Seed:          7,
		Game:          g,
	}
	st := store.NewMemoryStore()
	s := New(cfg, st, conn)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createExercise(t *testing.T, s *Server, ex game.Exercise) string {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/exercises", ex)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create exercise: %d %s", rec.Code, rec.Body.String())
	}
	return decode[createExerciseRes](t, rec).ID
}

func createSession(t *testing.T, s *Server, exerciseID string, hdr ...string) (sessionView, *httptest.ResponseRecorder) {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/sessions", newSessionReq{ExerciseID: exerciseID}, hdr...)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: %d %s", rec.Code, rec.Body.String())
	}
	return decode[sessionView](t, rec), rec
}

var marketExercise = game.Exercise{
	Title:          "Market",
	DialogueLines:  []game.DialogueLine{{Speaker: "Ana", Template: "I ___ to the ___."}},
	WordBank:       []string{"went", "station"},
	CorrectAnswers: []string{"I go to the market."},
}

func TestHealthAndBanner(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/health", nil); rec.Code != http.StatusOK || rec.Body.String() != `{"ok":true}` {
		t.Errorf("health: %d %s", rec.Code, rec.Body.String())
	}
	rec := do(t, s, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("banner: %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("expected CORS origin header, got %q", got)
	}
	vocab := decode[map[string]any](t, do(t, s, http.MethodGet, "/debug/words?word="+words.Bank()[0], nil))
	if n, _ := vocab["vocabulary"].(float64); n == 0 {
		t.Error("expected non-empty vocabulary")
	}
	if vocab["contains"] != true {
		t.Errorf("expected first bank word to be found, got %v", vocab["contains"])
	}
	if rec := do(t, s, http.MethodGet, "/nope", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAlignEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/align", alignReq{Template: "1. I ___ to the ___.", Answer: "1. I go to the market."})
	if rec.Code != http.StatusOK {
		t.Fatalf("align: %d %s", rec.Code, rec.Body.String())
	}
	res := decode[alignRes](t, rec)
	if res.Gaps != 2 || res.Words[0] != "go" || res.Words[1] != "market" {
		t.Errorf("unexpected alignment %+v", res)
	}
	if rec := do(t, s, http.MethodPost, "/align", nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", rec.Code)
	}
}

func TestExerciseCatalogue(t *testing.T) {
	s := newTestServer(t)
	id := createExercise(t, s, marketExercise)

	bad := game.Exercise{
		Title:          "Broken",
		DialogueLines:  []game.DialogueLine{{Template: "She ___ tea."}},
		CorrectAnswers: nil,
	}
	rec := do(t, s, http.MethodPost, "/exercises", bad)
	if rec.Code != http.StatusCreated {
		t.Fatalf("broken exercise should still be stored: %d", rec.Code)
	}
	if res := decode[createExerciseRes](t, rec); len(res.Warnings) == 0 {
		t.Error("expected authoring warnings for missing answer")
	}

	view := decode[exerciseView](t, do(t, s, http.MethodGet, "/exercises/"+id, nil))
	if len(view.Lines) != 1 || view.Lines[0].Targets[1] != "market" {
		t.Errorf("unexpected lines %+v", view.Lines)
	}

	list := decode[[]map[string]any](t, do(t, s, http.MethodGet, "/exercises", nil))
	if len(list) != 2 {
		t.Errorf("expected 2 exercises, got %d", len(list))
	}

	if rec := do(t, s, http.MethodGet, "/exercises/missing", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	s.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	daily := decode[exerciseView](t, do(t, s, http.MethodGet, "/exercises/daily", nil))
	if daily.Date != "2024-07-01" || daily.Exercise.ID == "" {
		t.Errorf("unexpected daily view %+v", daily)
	}
	again := decode[exerciseView](t, do(t, s, http.MethodGet, "/exercises/daily", nil))
	if again.Exercise.ID != daily.Exercise.ID {
		t.Error("daily exercise must be stable within a day")
	}
}

func TestDailyWithoutExercises(t *testing.T) {
	s := newTestServer(t)
	if rec := do(t, s, http.MethodGet, "/exercises/daily", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with empty catalogue, got %d", rec.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	exID := createExercise(t, s, marketExercise)

	view, rec := createSession(t, s, exID)
	if view.Snapshot.Game.Phase != game.PhaseReady {
		t.Fatalf("expected ready, got %s", view.Snapshot.Game.Phase)
	}
	if len(rec.Result().Cookies()) == 0 || view.PlayerID == "" {
		t.Error("expected anonymous player cookie")
	}
	base := "/sessions/" + view.SessionID

	if rec := do(t, s, http.MethodPost, base+"/hit", hitReq{WordID: 1}); rec.Code != http.StatusConflict {
		t.Errorf("hit before start: expected 409, got %d", rec.Code)
	}

	started := decode[sessionView](t, do(t, s, http.MethodPost, base+"/start", nil))
	if started.Snapshot.Game.Phase != game.PhasePlaying || !started.Snapshot.Running {
		t.Errorf("expected playing with ticks, got %+v", started.Snapshot)
	}
	if started.Snapshot.Speaker != "Ana" || started.Snapshot.GapCount != 2 {
		t.Errorf("unexpected line info %+v", started.Snapshot)
	}
	if rec := do(t, s, http.MethodPost, base+"/start", nil); rec.Code != http.StatusConflict {
		t.Errorf("second start: expected 409, got %d", rec.Code)
	}

	typed := decode[typeRes](t, do(t, s, http.MethodPost, base+"/type", typeReq{Text: "nothing"}))
	if typed.Matched {
		t.Error("expected no match on an empty field")
	}
	if rec := do(t, s, http.MethodPost, base+"/hit", hitReq{WordID: 999}); rec.Code != http.StatusOK {
		t.Errorf("hit on unknown word should be ignored, got %d", rec.Code)
	}

	paused := decode[sessionView](t, do(t, s, http.MethodPost, base+"/pause", nil))
	if paused.Snapshot.Game.Phase != game.PhasePaused || paused.Snapshot.Running {
		t.Errorf("expected paused without ticks, got %+v", paused.Snapshot)
	}
	resumed := decode[sessionView](t, do(t, s, http.MethodPost, base+"/resume", nil))
	if resumed.Snapshot.Game.Phase != game.PhasePlaying {
		t.Errorf("expected playing after resume, got %s", resumed.Snapshot.Game.Phase)
	}

	if rec := do(t, s, http.MethodDelete, base, nil); rec.Code != http.StatusOK {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, base, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestIdleSessionsAreEvicted(t *testing.T) {
	s := newTestServer(t)
	exID := createExercise(t, s, marketExercise)
	idle, _ := createSession(t, s, exID)
	playing, _ := createSession(t, s, exID)
	if rec := do(t, s, http.MethodPost, "/sessions/"+playing.SessionID+"/start", nil); rec.Code != http.StatusOK {
		t.Fatalf("start: %d", rec.Code)
	}

	s.cfg.SessionTTL = time.Minute
	s.now = func() time.Time { return time.Now().Add(time.Hour) }
	if n := s.pruneSessions(context.Background()); n != 1 {
		t.Fatalf("expected 1 session evicted, got %d", n)
	}
	if rec := do(t, s, http.MethodGet, "/sessions/"+idle.SessionID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected idle session gone, got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/sessions/"+playing.SessionID, nil); rec.Code != http.StatusOK {
		t.Errorf("expected ticking session kept, got %d", rec.Code)
	}
}

func TestSessionUnknownExercise(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/sessions", newSessionReq{ExerciseID: "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

// An exercise with nothing to play is won on start, which records a result.
func TestCompletionRecordsResult(t *testing.T) {
	s := newTestServer(t)
	exID := createExercise(t, s, game.Exercise{Title: "Empty"})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       "user-42",
		"username": "ana",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	auth := []string{"Authorization", "Bearer " + token}

	view, _ := createSession(t, s, exID, auth...)
	if view.PlayerID != "user-42" {
		t.Errorf("expected token player, got %q", view.PlayerID)
	}
	done := decode[sessionView](t, do(t, s, http.MethodPost, "/sessions/"+view.SessionID+"/start", nil))
	if done.Snapshot.Game.Phase != game.PhaseWon {
		t.Fatalf("expected won, got %s", done.Snapshot.Game.Phase)
	}
	if done.Snapshot.Last == nil || done.Snapshot.Last.Kind != game.NoticeComplete {
		t.Errorf("expected completion notice, got %+v", done.Snapshot.Last)
	}

	s.bg.Wait() // the result is written off the request goroutine
	lb := decode[lbRes](t, do(t, s, http.MethodGet, "/exercises/"+exID+"/leaderboard", nil))
	if len(lb.Top) != 1 || lb.Top[0].PlayerID != "user-42" || lb.Top[0].Outcome != "won" {
		t.Errorf("unexpected leaderboard %+v", lb.Top)
	}
	if lb.MyBest != nil {
		t.Errorf("anonymous caller should have no personal best, got %d", *lb.MyBest)
	}
	mine := decode[lbRes](t, do(t, s, http.MethodGet, "/exercises/"+exID+"/leaderboard", nil, auth...))
	if mine.MyBest == nil || *mine.MyBest != 0 {
		t.Errorf("expected personal best 0, got %v", mine.MyBest)
	}
}

func TestInvalidTokenFallsBackToGuest(t *testing.T) {
	s := newTestServer(t)
	exID := createExercise(t, s, marketExercise)

	forged, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "admin"}).SignedString([]byte("wrong"))
	view, _ := createSession(t, s, exID, "Authorization", "Bearer "+forged)
	if view.PlayerID == "admin" || view.PlayerID == "" {
		t.Errorf("expected anonymous player, got %q", view.PlayerID)
	}
}
