// Package server exposes live preview sessions over HTTP.
//
// The host page carries three editors and a sandboxed iframe. Each page
// opens a websocket; the connection owns one engine, sends edits into it and
// receives every rendered frame back. Closing the socket tears the engine
// down.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/conneroisu/livepane/internal/buffer"
	"github.com/conneroisu/livepane/internal/compose"
	"github.com/conneroisu/livepane/internal/config"
	lperrors "github.com/conneroisu/livepane/internal/errors"
	"github.com/conneroisu/livepane/internal/logging"
	"github.com/conneroisu/livepane/internal/monitoring"
	"github.com/conneroisu/livepane/internal/sandbox"
)

const shutdownTimeout = 5 * time.Second

// Server serves the host page and one live session per websocket.
type Server struct {
	config   *config.Config
	seed     buffer.Exercise
	policy   sandbox.Policy
	composer compose.Composer
	logger   logging.Logger
	metrics  *monitoring.Metrics
	sessions *sessionRegistry
	started  time.Time

	serverMutex  sync.RWMutex
	httpServer   *http.Server
	shutdownOnce sync.Once
}

// New creates a server. Every session starts from seed. A nil metrics set
// gets a private registry.
func New(cfg *config.Config, seed buffer.Exercise, logger logging.Logger, metrics *monitoring.Metrics) (*Server, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, lperrors.NewConfigError(lperrors.ErrCodeConfigInvalid, "building sandbox policy", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}

	return &Server{
		config:   cfg,
		seed:     seed,
		policy:   policy,
		composer: compose.Composer{EscapeBoundaries: cfg.Preview.EscapeBoundaries},
		logger:   logger.WithComponent("server"),
		metrics:  metrics,
		sessions: newSessionRegistry(),
		started:  time.Now(),
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.hostPageHandler())
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /preview/{session}", s.handlePreview)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/exercise", s.handleExercise)
	mux.Handle("GET /metrics", s.metrics.Handler())

	return s.addMiddleware(mux)
}

func (s *Server) hostPageHandler() http.Handler {
	page := templ.Handler(HostPage(PageData{
		Seed:   s.seed,
		Policy: s.policy,
	}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", hostPageCSP)
		page.ServeHTTP(w, r)
	})
}

// Start serves until ctx is done or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	stop := context.AfterFunc(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Shutdown did not complete cleanly")
		}
	})
	defer stop()

	s.logger.Info(ctx, "Preview server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return lperrors.NewTransportError(lperrors.ErrCodeServeFailed, "serving preview", err).
			WithContext("addr", server.Addr)
	}
	return nil
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down preview server", "sessions", s.sessions.count())
		s.sessions.closeAll()

		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
	})

	return shutdownErr
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	return s.sessions.count()
}
