// Package httpapi exposes the synchronous user-facing surface: the
// credential check path and the health endpoint. Everything else in
// the pipeline runs in the background behind the queue.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/gradewatch/gradewatch-server/internal/logger"
	"github.com/gradewatch/gradewatch-server/internal/model"
)

// CredentialChecker runs one synchronous login attempt.
type CredentialChecker interface {
	CheckCredentials(ctx context.Context, req model.CredentialsRequest) model.AuthResult
}

// TokenParser validates bearer tokens. *token.Verifier implements it.
type TokenParser interface {
	Parse(tokenString string) (uuid.UUID, error)
}

// Pinger checks one backing dependency's liveness.
type Pinger func(ctx context.Context) error

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	checker    CredentialChecker
	tokens     TokenParser
	checks     map[string]Pinger
	logger     *logger.Logger
}

// NewServer creates a Server listening on addr. checks maps dependency
// names to their liveness probes for the health endpoint.
func NewServer(addr string, checker CredentialChecker, tokens TokenParser, checks map[string]Pinger, l *logger.Logger) *Server {
	s := &Server{
		checker: checker,
		tokens:  tokens,
		checks:  checks,
		logger:  l,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Post("/credentials/check", s.handleCredentialCheck)
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the routed handler, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run starts serving and blocks until the listener closes.
func (s *Server) Run() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
