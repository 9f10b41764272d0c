package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkilaker/newsio/internal/config"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/enrich"
	"github.com/tkilaker/newsio/internal/feed"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/pipeline"
	"github.com/tkilaker/newsio/internal/sources"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd().ExecuteContext(ctx)
}

// app holds the components shared by the commands. Each is built once.
type app struct {
	cfg      *config.Config
	store    database.Store
	registry *sources.Registry
	fetcher  *feed.RSSFetcher
	cycle    *pipeline.Cycle
	news     *news.Service
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry, err := sources.LoadOrDefault(cfg.FeedsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed sources: %w", err)
	}

	store, err := database.Open(ctx, cfg.DatabaseURL, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.UsePostgres() {
		slog.Info("connected to database", "backend", "postgres")
	} else {
		slog.Info("connected to database", "backend", "sqlite", "path", cfg.SQLitePath)
	}

	enricher, err := enrich.New(enrich.Options{
		Provider: cfg.AIProvider,
		Model:    cfg.AIModel,
		APIKey:   cfg.AIAPIKey,
	})
	switch {
	case errors.Is(err, enrich.ErrDisabled):
		slog.Info("AI enrichment disabled, AI_API_KEY not set")
		enricher = nil
	case err != nil:
		store.Close()
		return nil, fmt.Errorf("failed to initialize enrichment: %w", err)
	default:
		slog.Info("AI enrichment enabled", "provider", cfg.AIProvider)
	}

	fetcher := feed.NewRSSFetcher(cfg.FetchTimeout)
	return &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		fetcher:  fetcher,
		cycle:    pipeline.NewCycle(store, fetcher, registry, enricher),
		news:     news.NewService(store, fetcher, registry),
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
