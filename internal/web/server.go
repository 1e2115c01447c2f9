// Package web provides the HTTP server, the JSON API and the browser GUI
// over a core.Service.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/saptables/internal/config"
	"github.com/JonMunkholm/saptables/internal/core"
	"github.com/JonMunkholm/saptables/internal/logging"
	"github.com/JonMunkholm/saptables/internal/web/middleware"
)

// Server is the HTTP server for the table automation application.
type Server struct {
	service *core.Service
	cfg     *config.Config
	diag    *logging.Buffer
	router  *chi.Mux
	server  *http.Server

	limiters []*middleware.IPRateLimiter

	mu     sync.Mutex
	stop   context.CancelFunc
	closed bool
}

// NewServer creates a Server. diag may be nil, in which case the log
// endpoints return no lines.
func NewServer(service *core.Service, cfg *config.Config, diag *logging.Buffer) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		diag:    diag,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newLimiter(s.cfg.Rate.RequestsPerMinute).Middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Pages
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/table/{tableKey}", s.handleTableView)
	s.router.Get("/journal", s.handleJournalPage)
	s.router.Get("/diagnostics", s.handleDiagnostics)

	edits := func(next http.Handler) http.Handler { return next }
	if s.cfg.Rate.Enabled {
		edits = s.newLimiter(s.cfg.Rate.EditLimit).Middleware
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Security))

		r.Get("/status", s.handleStatus)

		// Tables
		r.Get("/tables", s.handleListTables)
		r.Get("/tables/{tableKey}/fields", s.handleTableFields)
		r.Get("/tables/{tableKey}/data", s.handleTableData)
		r.Get("/tables/{tableKey}/frame", s.handleTableFrame)
		r.Get("/tables/{tableKey}/export.{format}", s.handleExport)
		r.With(edits).Post("/tables/{tableKey}/data", s.handleUpdateTable)

		// Staged edits
		r.With(edits).Post("/edits/apply", s.handleApplyEdits)
		r.With(edits).Post("/edits/discard", s.handleDiscardEdits)
		r.Get("/edits", s.handlePendingEdits)

		// Model
		r.Get("/model", s.handleModelInfo)
		r.With(edits).Put("/model/units", s.handleSetUnits)
		r.With(edits).Post("/model/save", s.handleSave)
		r.With(edits).Post("/model/lock", s.handleLock(true))
		r.With(edits).Post("/model/unlock", s.handleLock(false))
		r.With(edits).Put("/model/merge-tolerance", s.handleSetMergeTolerance)
		r.Get("/model/project-info", s.handleProjectInfo)
		r.With(edits).Put("/model/project-info", s.handleSetProjectInfo)
		r.Get("/model/comment", s.handleUserComment)
		r.With(edits).Put("/model/comment", s.handleSetUserComment)
		r.Post("/model/refresh", s.handleRefreshView)

		// Journal and diagnostics
		r.Get("/journal", s.handleJournal)
		r.Get("/logs", s.handleLogs)
	})
}

func (s *Server) newLimiter(perMinute int) *middleware.IPRateLimiter {
	l := middleware.NewIPRateLimiter(perMinute)
	s.limiters = append(s.limiters, l)
	return l
}

// Start begins listening for HTTP requests. It returns
// http.ErrServerClosed after Shutdown, including a Shutdown that came first.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	for _, l := range s.limiters {
		go l.Cleanup(ctx)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	srv := s.server
	s.mu.Unlock()

	slog.Info("starting server", "addr", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	stop, srv := s.stop, s.server
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if srv == nil {
		return nil
	}
	err := srv.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// Pages carry one inline stylesheet and no scripts.
				h.Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")
			}
			next.ServeHTTP(w, r)
		})
	}
}
