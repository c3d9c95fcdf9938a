// internal/httpserver/server.go
//
// HTTP server wiring for the word-catching backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/debug/words", POST "/align".
//   - Exercise catalogue endpoints: mounted under /exercises (routes_exercises.go).
//   - Live session endpoints (optional auth): mounted under /sessions (routes_sessions.go).
//   - Player identity: verified JWT "id" claim when present, otherwise an anonymous cookie.
//   - Background work: result writes off the runner's goroutines and a sweeper
//     that evicts idle sessions after SESSION_TTL.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Tokens are issued by the hosting page; this server only verifies them.
//     With no JWT_SECRET configured every player is a guest.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/align"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/config"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/exercises"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/results"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/store"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

// Server bundles router, live session registry, and the sqlite-backed stores.
type Server struct {
	r         *chi.Mux
	cfg       config.Config
	sessions  store.Store
	exercises *exercises.Store
	results   *results.Store
	now       func() time.Time
	http      *http.Server

	bg     sync.WaitGroup // result writes and the sweeper
	cancel context.CancelFunc
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB) *Server {
	s := &Server{
		r:         chi.NewRouter(),
		cfg:       cfg,
		sessions:  st,
		exercises: exercises.NewStore(db),
		results:   results.NewStore(db),
		now:       time.Now,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(s.cors)                          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"wordcatch-go","endpoints":["/health","POST /align","/exercises","/sessions"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
		out := map[string]any{"vocabulary": words.Stats()}
		if q := r.URL.Query().Get("word"); q != "" {
			out["contains"] = words.Contains(q)
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	// Gap alignment preview for exercise authors.
	s.r.Post("/align", s.handleAlign)

	s.mountExercises(s.r.With(s.withOptionalAuth()))
	s.mountSessions(s.r.With(s.withOptionalAuth()))

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if cfg.SessionTTL > 0 {
		s.bg.Add(1)
		go s.sweepSessions(ctx, sweepInterval(cfg.SessionTTL))
	}

	return s
}

// Start begins serving HTTP on addr. It returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	return s.http.ListenAndServe()
}

// Shutdown stops accepting requests, tears down every live session and waits
// for pending result writes.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.http != nil {
		err = s.http.Shutdown(ctx)
	}
	s.cancel()
	s.sessions.CloseAll()
	s.bg.Wait()
	return err
}

// sweepInterval checks a few times per TTL, at most once a minute.
func sweepInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every > time.Minute {
		every = time.Minute
	}
	if every < time.Second {
		every = time.Second
	}
	return every
}

// sweepSessions evicts idle sessions until ctx is done.
func (s *Server) sweepSessions(ctx context.Context, every time.Duration) {
	defer s.bg.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.pruneSessions(ctx)
		}
	}
}

func (s *Server) pruneSessions(ctx context.Context) int {
	n := s.sessions.Prune(ctx, s.now().Add(-s.cfg.SessionTTL))
	if n > 0 {
		log.Info().Int("evicted", n).Msg("idle sessions evicted")
	}
	return n
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured CLIENT_ORIGIN.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- ALIGN -------------------------------------

type alignReq struct {
	Template string `json:"template"`
	Answer   string `json:"answer"`
}

type alignRes struct {
	Words []string `json:"words"`
	Gaps  int      `json:"gaps"`
}

// handleAlign recovers the gap words of one template/answer pair.
func (s *Server) handleAlign(w http.ResponseWriter, r *http.Request) {
	var req alignReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	out := align.Align(req.Template, req.Answer)
	_ = json.NewEncoder(w).Encode(alignRes{Words: out, Gaps: len(out)})
}

// --------------------------- optional auth ---------------------------------

// authUser is placed into request context by withOptionalAuth.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

// withOptionalAuth decorates requests with user context if a valid JWT is present.
// It never 401s; guests fall back to an anonymous cookie.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if u := s.verifyToken(bearerOrCookie(r)); u != nil {
				r = r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// verifyToken returns the user named by a valid HS256 token, or nil.
func (s *Server) verifyToken(tok string) *authUser {
	if tok == "" || s.cfg.JWTSecret == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !t.Valid {
		log.Debug().Err(err).Msg("ignoring invalid token")
		return nil
	}
	id, _ := claims["id"].(string)
	if id == "" {
		return nil
	}
	username, _ := claims["username"].(string)
	return &authUser{ID: id, Username: username}
}

const (
	anonCookieName = "wordcatch_anon"
	authCookieName = "wordcatch_token"
)

// playerID returns the authenticated user ID if present, otherwise a stable
// anonymous id from cookie (set on first use).
func (s *Server) playerID(w http.ResponseWriter, r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	return s.ensureAnonID(w, r)
}

// knownPlayer is playerID without side effects: "" for a first-time guest.
func (s *Server) knownPlayer(r *http.Request) string {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return me.ID
	}
	if c, err := r.Cookie(anonCookieName); err == nil {
		return c.Value
	}
	return ""
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := "anon-" + uuid.NewString()
	secure := strings.HasPrefix(s.cfg.ClientOrigin, "https://")
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}

// bearerOrCookie extracts a bearer token from Authorization header or auth cookie.
func bearerOrCookie(r *http.Request) string {
	// Authorization: Bearer <token>
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(authCookieName); err == nil {
		return c.Value
	}
	return ""
}
