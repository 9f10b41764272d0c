// Package pipeline runs fetch cycles: every registered feed is fetched,
// new articles are stored once by URL, optionally enriched, and the
// last-fetch record is updated.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/enrich"
	"github.com/tkilaker/newsio/internal/feed"
	"github.com/tkilaker/newsio/internal/sources"
)

// ErrCycleRunning is returned when a cycle is requested while another one
// has not finished.
var ErrCycleRunning = errors.New("fetch cycle already running")

// Cycle fetches, stores and enriches articles from the registry's sources.
type Cycle struct {
	store    database.Store
	fetcher  feed.Fetcher
	registry *sources.Registry
	enricher enrich.Enricher
	gate     *Gate
	progress *ProgressTracker
	now      func() time.Time
}

// NewCycle wires a cycle. enricher may be nil, in which case new articles
// stay unprocessed.
func NewCycle(store database.Store, fetcher feed.Fetcher, registry *sources.Registry, enricher enrich.Enricher) *Cycle {
	return &Cycle{
		store:    store,
		fetcher:  fetcher,
		registry: registry,
		enricher: enricher,
		gate:     NewGate(store),
		progress: NewProgressTracker(),
		now:      time.Now,
	}
}

// Progress returns the tracker updated while cycles run.
func (c *Cycle) Progress() *ProgressTracker {
	return c.progress
}

// Gate returns the staleness gate used by RunIfStale.
func (c *Cycle) Gate() *Gate {
	return c.gate
}

// Run executes one cycle. Per-source failures are recorded in the report;
// only an unreachable store fails the cycle as a whole.
func (c *Cycle) Run(ctx context.Context) (*Report, error) {
	list := c.registry.All()
	if !c.progress.TryStart(len(list)) {
		return nil, ErrCycleRunning
	}

	report, err := c.run(ctx, list)
	if err != nil {
		c.progress.Finish(StatusFailed, err.Error())
		return nil, err
	}
	c.progress.Finish(StatusCompleted, report.Message())
	return report, nil
}

func (c *Cycle) run(ctx context.Context, list []sources.Source) (*Report, error) {
	report := &Report{StartedAt: c.now()}

	if err := c.store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach store: %w", err)
	}

	// One entry per source, written only by that source's task.
	stats := make(map[string]*SourceReport, len(list))
	for _, src := range list {
		stats[src.URL] = &SourceReport{Name: src.Name, Country: src.Country}
	}

	results := feed.Each(ctx, list, func(ctx context.Context, src sources.Source) feed.Result {
		articles, err := c.fetcher.Fetch(ctx, src)
		if err != nil {
			c.progress.SourceDone(0, 0)
			return feed.Result{Err: err}
		}
		stat := stats[src.URL]
		inserted := c.storeArticles(ctx, stat, articles)
		c.progress.SourceDone(stat.Inserted, stat.Skipped)
		return feed.Result{Articles: inserted}
	})

	for _, res := range results {
		stat := stats[res.Source.URL]
		stat.Duration = res.Duration
		if res.Err != nil {
			stat.Error = res.Err.Error()
		}
		report.add(*stat)
	}

	// The cycle is over once every source has reported, even when the
	// caller's deadline passed while sources were still running.
	if err := c.gate.MarkFetched(context.WithoutCancel(ctx)); err != nil {
		return nil, fmt.Errorf("failed to record fetch time: %w", err)
	}

	report.Duration = time.Since(report.StartedAt)
	slog.Info("fetch cycle complete",
		"sources", len(list),
		"fetched", report.Fetched,
		"inserted", report.Inserted,
		"skipped", report.Skipped,
		"enriched", report.Enriched,
		"failed", report.Failed,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// RunIfStale runs a cycle only when the gate says one is due.
func (c *Cycle) RunIfStale(ctx context.Context) (bool, *Report, error) {
	due, err := c.gate.NeedsFetch(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to read last fetch time: %w", err)
	}
	if !due {
		return false, nil, nil
	}
	report, err := c.Run(ctx)
	if err != nil {
		return false, nil, err
	}
	return true, report, nil
}

// EnrichPending enriches up to limit stored articles that are still
// unprocessed and returns how many succeeded.
func (c *Cycle) EnrichPending(ctx context.Context, limit int) (int, error) {
	if c.enricher == nil {
		return 0, enrich.ErrDisabled
	}
	pending, err := c.store.ListUnprocessed(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list unprocessed articles: %w", err)
	}

	done := 0
	for _, a := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if c.enrich(ctx, a) {
			done++
		}
	}
	return done, nil
}

// storeArticles inserts the articles whose URL is not stored yet and
// enriches the ones that were new. The unique URL index settles races with
// a concurrent writer, so a conflicting insert also counts as skipped.
func (c *Cycle) storeArticles(ctx context.Context, stat *SourceReport, articles []*database.Article) []*database.Article {
	stat.Fetched = len(articles)

	var inserted []*database.Article
	for _, a := range articles {
		stored, err := c.store.ArticleExists(ctx, a.URL)
		if err != nil {
			stat.Errors++
			slog.Error("failed to look up article", "source", stat.Name, "url", a.URL, "error", err)
			continue
		}
		if stored {
			stat.Skipped++
			continue
		}

		ok, err := c.store.InsertArticle(ctx, a)
		if err != nil {
			stat.Errors++
			slog.Error("failed to store article", "source", stat.Name, "url", a.URL, "error", err)
			continue
		}
		if !ok {
			stat.Skipped++
			continue
		}
		stat.Inserted++
		inserted = append(inserted, a)
	}

	if c.enricher != nil {
		for _, a := range inserted {
			if c.enrich(ctx, a) {
				stat.Enriched++
			}
		}
	}
	return inserted
}

// enrich processes one article. Failures are logged and leave the row
// unprocessed.
func (c *Cycle) enrich(ctx context.Context, a *database.Article) bool {
	data, err := c.enricher.Enrich(ctx, enrich.ArticleText(a))
	if err != nil {
		slog.Warn("enrichment failed", "url", a.URL, "error", err)
		return false
	}
	if err := c.store.MarkEnriched(ctx, a.ID, data); err != nil {
		slog.Warn("failed to save enrichment", "url", a.URL, "error", err)
		return false
	}
	a.AIProcessed = true
	a.AIData = data
	return true
}
