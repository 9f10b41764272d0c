package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tkilaker/newsio/internal/config"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/pipeline"
	"github.com/tkilaker/newsio/internal/sources"
)

// backgroundFetchTimeout bounds a cycle started by a page view.
const backgroundFetchTimeout = 5 * time.Minute

// Server represents the HTTP server
type Server struct {
	router   *chi.Mux
	store    database.Store
	cycle    *pipeline.Cycle
	news     *news.Service
	registry *sources.Registry
	config   *config.Config
}

// New creates a new server instance
func New(store database.Store, cycle *pipeline.Cycle, svc *news.Service, registry *sources.Registry, cfg *config.Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		store:    store,
		cycle:    cycle,
		news:     svc,
		registry: registry,
		config:   cfg,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)

	// A cycle with enrichment and the progress stream both outlive the
	// request timeout
	s.router.Get("/api/fetch/events", s.handleFetchEvents)
	s.router.Get("/api/cron", s.handleCron)
	s.router.Post("/api/cron", s.handleCron)

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Pages
		r.Get("/", s.handleIndex)
		r.Get("/{country}", s.handleCountry)
		r.Get("/articles/{id}", s.handleArticleDetail)
		r.Post("/subscribe", s.handleSubscribe)

		// API
		r.Get("/api/news", s.handleAPINews)
		r.Get("/api/trending", s.handleAPITrending)
		r.Get("/api/fetch/status", s.handleFetchStatus)

		// Feeds
		r.Get("/rss.xml", s.handleRSS)
		r.Get("/sitemap.xml", s.handleSitemap)

		// Health check
		r.Get("/health", s.handleHealth)
	})
}

// Router returns the Chi router
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// fetchInBackground starts a cycle detached from the request unless one is
// already running.
func (s *Server) fetchInBackground() {
	if s.cycle.Progress().IsActive() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backgroundFetchTimeout)
		defer cancel()
		if _, err := s.cycle.Run(ctx); err != nil && !errors.Is(err, pipeline.ErrCycleRunning) {
			slog.Error("background fetch failed", "error", err)
		}
	}()
}
