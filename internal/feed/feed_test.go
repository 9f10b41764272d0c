package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/feeds"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/sources"
)

const mediaRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <title>Media feed</title>
    <link>https://media.example.com</link>
    <description>test</description>
    <item>
      <title>With media</title>
      <link>https://media.example.com/1</link>
      <description>First story</description>
      <pubDate>Thu, 15 Oct 2026 10:00:00 GMT</pubDate>
      <media:content url="https://img.example.com/1.jpg" medium="image"/>
    </item>
    <item>
      <title>Missing link</title>
      <description>Dropped</description>
    </item>
  </channel>
</rss>`

func rssFixture(t *testing.T) string {
	t.Helper()
	created := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	f := &feeds.Feed{
		Title:       "Fixture",
		Link:        &feeds.Link{Href: "https://fixture.example.com"},
		Description: "fixture feed",
		Created:     created,
		Items: []*feeds.Item{
			{
				Title:       "First",
				Link:        &feeds.Link{Href: "https://fixture.example.com/first"},
				Description: "<p>First <b>story</b></p>",
				Created:     created,
				Enclosure:   &feeds.Enclosure{Url: "https://img.example.com/first.jpg", Type: "image/jpeg"},
			},
			{
				Title:       "Second",
				Link:        &feeds.Link{Href: "https://fixture.example.com/second"},
				Description: "Second story",
				Created:     created.Add(-time.Hour),
			},
		},
	}
	rss, err := f.ToRss()
	if err != nil {
		t.Fatalf("building fixture: %v", err)
	}
	return rss
}

func serveFeed(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSFetcherFetch(t *testing.T) {
	srv := serveFeed(t, rssFixture(t))
	src := sources.Source{Name: "Fixture", URL: srv.URL, Country: "us"}

	articles, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(articles))
	}

	first := articles[0]
	if first.URL != "https://fixture.example.com/first" {
		t.Errorf("feed order not kept, first = %s", first.URL)
	}
	if first.Summary != "First story..." {
		t.Errorf("unexpected summary %q", first.Summary)
	}
	if first.Image != "https://img.example.com/first.jpg" {
		t.Errorf("expected enclosure image, got %q", first.Image)
	}
	if first.Country != "us" || first.Source != "Fixture" {
		t.Errorf("source fields = %q/%q", first.Source, first.Country)
	}
	if articles[1].Image != PlaceholderImage("https://fixture.example.com/second") {
		t.Errorf("expected placeholder for second item, got %q", articles[1].Image)
	}
}

func TestRSSFetcherMediaContent(t *testing.T) {
	srv := serveFeed(t, mediaRSS)
	src := sources.Source{Name: "Media", URL: srv.URL, Country: "uk"}

	articles, err := NewRSSFetcher(5*time.Second).Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("expected item without link to be dropped, got %d articles", len(articles))
	}
	if articles[0].Image != "https://img.example.com/1.jpg" {
		t.Errorf("expected media:content image, got %q", articles[0].Image)
	}
	want := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	if !articles[0].PubDate.Equal(want) {
		t.Errorf("pubDate = %v, want %v", articles[0].PubDate, want)
	}
}

func TestRSSFetcherErrors(t *testing.T) {
	garbage := serveFeed(t, "this is not xml")
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(broken.Close)

	f := NewRSSFetcher(5 * time.Second)
	for _, url := range []string{garbage.URL, broken.URL} {
		if _, err := f.Fetch(context.Background(), sources.Source{Name: "Bad", URL: url, Country: "us"}); err == nil {
			t.Errorf("expected error fetching %s", url)
		}
	}
}

type stubFetcher struct {
	calls    atomic.Int32
	articles map[string][]*database.Article
	fail     map[string]bool
	delay    map[string]time.Duration
}

func (s *stubFetcher) Fetch(ctx context.Context, src sources.Source) ([]*database.Article, error) {
	s.calls.Add(1)
	if d := s.delay[src.Name]; d > 0 {
		time.Sleep(d)
	}
	if s.fail[src.Name] {
		return []*database.Article{{URL: "should-be-dropped"}}, errors.New("unreachable")
	}
	return s.articles[src.Name], nil
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	list := []sources.Source{
		{Name: "ok-1", URL: "u1", Country: "us"},
		{Name: "bad", URL: "u2", Country: "uk"},
		{Name: "ok-2", URL: "u3", Country: "in"},
	}
	stub := &stubFetcher{
		articles: map[string][]*database.Article{
			"ok-1": {{URL: "https://x/1"}},
			"ok-2": {{URL: "https://x/2"}, {URL: "https://x/3"}},
		},
		fail:  map[string]bool{"bad": true},
		delay: map[string]time.Duration{"ok-1": 20 * time.Millisecond},
	}

	results := FetchAll(context.Background(), stub, list)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if got := stub.calls.Load(); got != 3 {
		t.Errorf("expected every source fetched, got %d calls", got)
	}

	var failed int
	for _, r := range results {
		if !r.OK() {
			failed++
			if r.Source.Name != "bad" || len(r.Articles) != 0 {
				t.Errorf("unexpected failed result: %+v", r)
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected 1 failed result, got %d", failed)
	}

	if n := len(Articles(results)); n != 3 {
		t.Errorf("expected 3 articles from successful sources, got %d", n)
	}
	if results[len(results)-1].Source.Name != "ok-1" {
		t.Errorf("results should be in completion order, last = %s", results[len(results)-1].Source.Name)
	}
}
