package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func testSQLite(t *testing.T) Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func testPostgres(t *testing.T) Store {
	t.Helper()
	url := os.Getenv("NEWSIO_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("NEWSIO_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := New(ctx, url)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	if _, err := db.pool.Exec(ctx, `TRUNCATE articles, fetch_meta, subscriptions`); err != nil {
		t.Fatalf("truncating tables: %v", err)
	}
	t.Cleanup(db.Close)
	return db
}

func sampleArticles() []*Article {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return []*Article{
		{Title: "Post A", Summary: "A...", URL: "https://x/a", PubDate: now.Add(-1 * time.Hour), Source: "BBC News", Country: "uk"},
		{Title: "Post B", Summary: "B...", URL: "https://x/b", PubDate: now.Add(-2 * time.Hour), Source: "CNN", Country: "us"},
		{Title: "Post C", Summary: "C...", URL: "https://x/c", PubDate: now.Add(-3 * time.Hour), Source: "The Guardian", Country: "uk"},
	}
}

func insertAll(t *testing.T, db Store, articles []*Article) {
	t.Helper()
	for _, a := range articles {
		if _, err := db.InsertArticle(context.Background(), a); err != nil {
			t.Fatalf("insert %s: %v", a.URL, err)
		}
	}
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, testSQLite)
}

func TestPostgresStore(t *testing.T) {
	runStoreTests(t, testPostgres)
}

func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db Store)
	}{
		{"InsertAssignsID", testInsertAssignsID},
		{"InsertDeduplicatesByURL", testInsertDeduplicatesByURL},
		{"ConcurrentInsertSameURL", testConcurrentInsertSameURL},
		{"ListOrderAndCountry", testListOrderAndCountry},
		{"ListLimit", testListLimit},
		{"GetArticleByID", testGetArticleByID},
		{"MarkEnriched", testMarkEnriched},
		{"LastFetch", testLastFetch},
		{"Subscriptions", testSubscriptions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

func testInsertAssignsID(t *testing.T, db Store) {
	a := sampleArticles()[0]
	inserted, err := db.InsertArticle(context.Background(), a)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if !inserted {
		t.Fatal("expected first insert to report inserted")
	}
	if a.ID == "" {
		t.Error("expected store-assigned ID")
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func testInsertDeduplicatesByURL(t *testing.T, db Store) {
	ctx := context.Background()
	first := sampleArticles()[0]
	if _, err := db.InsertArticle(ctx, first); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	second := *first
	second.ID = ""
	second.Title = "Rewritten title"
	inserted, err := db.InsertArticle(ctx, &second)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Error("expected duplicate URL to be skipped")
	}

	got, err := db.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 stored article, got %d", len(got))
	}
	if got[0].Title != "Post A" {
		t.Errorf("first-seen content should win, got title %q", got[0].Title)
	}

	exists, err := db.ArticleExists(ctx, first.URL)
	if err != nil || !exists {
		t.Errorf("ArticleExists = %v, %v; want true", exists, err)
	}
}

func testConcurrentInsertSameURL(t *testing.T, db Store) {
	ctx := context.Background()
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a := sampleArticles()[1]
			ok, err := db.InsertArticle(ctx, a)
			if err != nil {
				t.Errorf("insert: %v", err)
				return
			}
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("expected exactly one winning insert, got %d", inserted)
	}
	n, err := db.CountArticles(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 stored article, got %d", n)
	}
}

func testListOrderAndCountry(t *testing.T, db Store) {
	ctx := context.Background()
	insertAll(t, db, sampleArticles())

	all, err := db.ListArticles(ctx, ArticleFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].PubDate.After(all[i-1].PubDate) {
			t.Errorf("articles not sorted newest first at %d", i)
		}
	}

	uk, err := db.ListArticles(ctx, ArticleFilter{Country: "uk"})
	if err != nil {
		t.Fatalf("list uk: %v", err)
	}
	if len(uk) != 2 {
		t.Fatalf("expected 2 uk articles, got %d", len(uk))
	}
	for _, a := range uk {
		if a.Country != "uk" {
			t.Errorf("expected country uk, got %q", a.Country)
		}
	}
	if uk[0].URL != "https://x/a" {
		t.Errorf("expected newest uk article first, got %s", uk[0].URL)
	}
}

func testListLimit(t *testing.T, db Store) {
	insertAll(t, db, sampleArticles())

	got, err := db.ListArticles(context.Background(), ArticleFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 articles with limit, got %d", len(got))
	}
}

func testGetArticleByID(t *testing.T, db Store) {
	ctx := context.Background()
	a := sampleArticles()[2]
	insertAll(t, db, []*Article{a})

	got, err := db.GetArticleByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if got.URL != a.URL || got.Source != a.Source {
		t.Errorf("unexpected article: %+v", got)
	}
	if !got.PubDate.Equal(a.PubDate) {
		t.Errorf("pubDate round trip: got %v, want %v", got.PubDate, a.PubDate)
	}

	if _, err := db.GetArticleByID(ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := db.GetArticleByID(ctx, "not-an-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func testMarkEnriched(t *testing.T, db Store) {
	ctx := context.Background()
	insertAll(t, db, sampleArticles())

	pending, err := db.ListUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnprocessed: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 unprocessed, got %d", len(pending))
	}

	data := &AIData{
		Summary:  "Short summary",
		Category: "world",
		Keywords: []string{"a", "b", "c"},
		Hashtags: []string{"#a", "#b"},
		SEOMeta:  "Meta",
	}
	if err := db.MarkEnriched(ctx, pending[0].ID, data); err != nil {
		t.Fatalf("MarkEnriched: %v", err)
	}
	if err := db.MarkEnriched(ctx, pending[0].ID, data); !errors.Is(err, ErrNotFound) {
		t.Errorf("second MarkEnriched should be ErrNotFound, got %v", err)
	}

	got, err := db.GetArticleByID(ctx, pending[0].ID)
	if err != nil {
		t.Fatalf("GetArticleByID: %v", err)
	}
	if !got.AIProcessed || got.AIData == nil {
		t.Fatalf("expected enrichment stored, got %+v", got)
	}
	if got.AIData.Category != "world" || len(got.AIData.Hashtags) != 2 {
		t.Errorf("unexpected enrichment data: %+v", got.AIData)
	}

	pending, err = db.ListUnprocessed(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnprocessed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("expected 2 unprocessed after enrichment, got %d", len(pending))
	}
}

func testLastFetch(t *testing.T, db Store) {
	ctx := context.Background()

	_, found, err := db.LastFetch(ctx)
	if err != nil {
		t.Fatalf("LastFetch: %v", err)
	}
	if found {
		t.Error("expected no fetch record in empty store")
	}

	first := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	second := first.Add(2 * time.Hour)
	for _, ts := range []time.Time{first, second} {
		if err := db.SetLastFetch(ctx, ts); err != nil {
			t.Fatalf("SetLastFetch: %v", err)
		}
	}

	got, found, err := db.LastFetch(ctx)
	if err != nil || !found {
		t.Fatalf("LastFetch = %v, %v, %v", got, found, err)
	}
	if !got.Equal(second) {
		t.Errorf("expected last fetch overwritten to %v, got %v", second, got)
	}
}

func testSubscriptions(t *testing.T, db Store) {
	ctx := context.Background()

	first, err := db.CreateSubscription(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("CreateSubscription: %v", err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamp, got %+v", first)
	}

	again, err := db.CreateSubscription(ctx, "reader@example.com")
	if err != nil {
		t.Fatalf("repeat CreateSubscription: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("expected existing subscription %s, got %s", first.ID, again.ID)
	}
}

func TestOpenSQLiteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "deep", "test.db")

	db, err := Open(context.Background(), "", path)
	if err != nil {
		t.Fatalf("opening db in nested dir: %v", err)
	}
	db.Close()

	if _, err := os.Stat(filepath.Dir(path)); os.IsNotExist(err) {
		t.Error("expected directory to be created")
	}
}
