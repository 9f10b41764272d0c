// Package feed retrieves syndication feeds and turns their items into
// articles.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/sources"
)

const userAgent = "newsio/1.0 (+https://github.com/tkilaker/newsio)"

// Fetcher retrieves one source and returns its normalized articles.
type Fetcher interface {
	Fetch(ctx context.Context, source sources.Source) ([]*database.Article, error)
}

// RSSFetcher fetches RSS and Atom feeds over HTTP.
type RSSFetcher struct {
	parser *gofeed.Parser
	now    func() time.Time
}

// NewRSSFetcher creates a fetcher whose requests time out after timeout.
func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent
	return &RSSFetcher{parser: parser, now: time.Now}
}

// Fetch downloads and parses source.URL.
func (f *RSSFetcher) Fetch(ctx context.Context, source sources.Source) ([]*database.Article, error) {
	parsed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", source.Name, err)
	}
	return NormalizeAll(parsed.Items, source, f.now()), nil
}

// Result is the outcome of fetching one source.
type Result struct {
	Source   sources.Source
	Articles []*database.Article
	Err      error
	Duration time.Duration
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// FetchAll fetches every source concurrently. A failing source yields a
// Result with Err set and no articles; it never cancels the others. Results
// are returned in completion order.
func FetchAll(ctx context.Context, fetcher Fetcher, list []sources.Source) []Result {
	return Each(ctx, list, func(ctx context.Context, src sources.Source) Result {
		articles, err := fetcher.Fetch(ctx, src)
		return Result{Source: src, Articles: articles, Err: err}
	})
}

// Each runs task once per source concurrently and collects the results in
// completion order. Durations are filled in by Each.
func Each(ctx context.Context, list []sources.Source, task func(context.Context, sources.Source) Result) []Result {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]Result, 0, len(list))
	)

	for _, src := range list {
		wg.Add(1)
		go func(s sources.Source) {
			defer wg.Done()
			start := time.Now()
			res := task(ctx, s)
			res.Source = s
			res.Duration = time.Since(start)
			if res.Err != nil {
				res.Articles = nil
				slog.Warn("feed fetch failed", "source", s.Name, "url", s.URL, "error", res.Err)
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(src)
	}

	wg.Wait()
	return results
}

// Articles flattens the articles of all successful results.
func Articles(results []Result) []*database.Article {
	var out []*database.Article
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Articles...)
		}
	}
	return out
}
