// internal/httpserver/server.go
//
// HTTP server wiring for the guessnumber backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/leaderboard".
//   - Round endpoints (optional auth): POST /round/new, POST /round/feedback,
//     GET /round/{id}, GET /round/{id}/watch (websocket).
//   - Round handlers live in routes_rounds.go; auth + stats in auth.go.
//
// Notes:
//   - The server holds each round's secret target in the session store and
//     hands it to the engine; clients only ever see guesses and bounds.
//   - Round history is written to SQL best effort; a failed write is logged
//     and never fails the request.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/robalobadob/guessnumber/internal/config"
	"github.com/robalobadob/guessnumber/internal/feed"
	"github.com/robalobadob/guessnumber/internal/results"
	"github.com/robalobadob/guessnumber/internal/store"
)

// Server bundles router, live round store, history store and feed.
type Server struct {
	r       *chi.Mux
	cfg     config.Config
	store   store.Store
	db      *sql.DB
	results *results.Store
	hub     *feed.Hub
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, hub *feed.Hub) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     cfg,
		store:   st,
		db:      db,
		results: results.NewStore(db),
		hub:     hub,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(jsonContentType)
	s.r.Use(s.cors)

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"guessnumber","endpoints":["/health","POST /round/new","POST /round/feedback","GET /round/{id}","/auth/*","/leaderboard"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/leaderboard", s.handleLeaderboard)

	// Rounds: OPTIONAL AUTH (guests can play)
	s.r.Group(func(g chi.Router) {
		g.Use(s.withOptionalAuth())
		g.With(chimw.Timeout(10*time.Second)).Post("/round/new", s.handleNewRound)
		g.With(chimw.Timeout(10*time.Second), rateLimit(rate.Limit(cfg.FeedbackRate), cfg.FeedbackBurst)).
			Post("/round/feedback", s.handleFeedback)
		g.Get("/round/{id}", s.handleGetRound)
		// no timeout: the websocket lives as long as the watcher
		g.Get("/round/{id}/watch", s.handleWatch)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", r.URL.Path)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

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

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimit rejects requests beyond a per-client token bucket with 429.
// Clients are keyed by remote IP, which chimw.RealIP has already resolved.
// A non-positive limit disables limiting.
func rateLimit(limit rate.Limit, burst int) func(http.Handler) http.Handler {
	if limit <= 0 {
		limit = rate.Inf
	}
	cl := &clientLimiters{limit: limit, burst: burst, byIP: make(map[string]*rate.Limiter)}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.get(clientIP(r)).Allow() {
				writeError(w, http.StatusTooManyRequests, "rate_limited", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// maxTrackedClients bounds clientLimiters before idle buckets are swept.
const maxTrackedClients = 4096

// clientLimiters hands out one limiter per client IP.
type clientLimiters struct {
	limit rate.Limit
	burst int

	mu   sync.Mutex
	byIP map[string]*rate.Limiter
}

func (c *clientLimiters) get(ip string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.byIP[ip]; ok {
		return l
	}
	if len(c.byIP) >= maxTrackedClients {
		// a full bucket behaves exactly like a fresh one
		for k, l := range c.byIP {
			if l.Tokens() >= float64(c.burst) {
				delete(c.byIP, k)
			}
		}
	}
	l := rate.NewLimiter(c.limit, c.burst)
	c.byIP[ip] = l
	return l
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// errorRes is the body of every error response.
type errorRes struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorRes{Error: code, Message: msg})
}
