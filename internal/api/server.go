// Package api exposes the plan engine over HTTP. Authentication proper
// lives in front of this service; the IdentityResolver is its
// injection point.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/planfold/planfold/internal/plan"
	"github.com/planfold/planfold/internal/store"
)

// IdentityResolver maps an incoming request to the requesting user.
type IdentityResolver interface {
	Resolve(r *http.Request) (string, error)
}

// HeaderIdentity resolves the user from the X-User-ID header. The
// gateway in front of the service is expected to have verified it.
type HeaderIdentity struct{}

// Resolve implements IdentityResolver.
func (HeaderIdentity) Resolve(r *http.Request) (string, error) {
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return "", errUnauthenticated
	}
	return userID, nil
}

// Server is the HTTP surface of the service.
type Server struct {
	engine   *plan.Engine
	store    *store.Store
	identity IdentityResolver
	log      zerolog.Logger
	router   chi.Router
}

// NewServer wires the router with all routes and middleware.
func NewServer(engine *plan.Engine, s *store.Store, identity IdentityResolver, log zerolog.Logger) *Server {
	srv := &Server{
		engine:   engine,
		store:    s,
		identity: identity,
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(srv.requestLogger)

	r.Get("/healthz", srv.handleHealth)
	r.Route("/v1/days/{date}", func(r chi.Router) {
		r.Post("/plan", srv.handlePlanWrite)
		r.Get("/", srv.handleDayRead)
		r.Put("/blocks", srv.handleLegacyBlocksWrite)
	})

	srv.router = r
	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request with method, path, status,
// and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// statusWriter captures the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
