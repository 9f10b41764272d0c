package feed

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/sources"
)

var bbc = sources.Source{Name: "BBC News", URL: "http://feeds.bbci.co.uk/news/rss.xml", Country: "uk"}

func TestNormalizeDiscardsIncompleteItems(t *testing.T) {
	now := time.Now()
	items := []*gofeed.Item{
		{Title: "Complete", Link: "https://x/a"},
		{Title: "", Link: "https://x/b"},
		{Title: "No link"},
		{Title: "   ", Link: "https://x/c"},
		{Title: "Script link", Link: "javascript:alert(document.cookie)"},
		{Title: "Data link", Link: "data:text/html,<script>alert(1)</script>"},
		{Title: "Relative link", Link: "/news/1"},
		nil,
	}

	got := NormalizeAll(items, bbc, now)
	if len(got) != 1 {
		t.Fatalf("expected 1 article, got %d", len(got))
	}
	if got[0].URL != "https://x/a" {
		t.Errorf("unexpected article kept: %s", got[0].URL)
	}
}

func TestNormalizeFields(t *testing.T) {
	pub := time.Date(2026, 10, 15, 8, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	item := &gofeed.Item{
		Title:           "Election results",
		Link:            "https://x/election",
		Description:     "<p>" + strings.Repeat("Results are in. ", 30) + "</p>",
		Content:         "<div>Full story</div>",
		PublishedParsed: &pub,
	}

	a, ok := Normalize(item, bbc, time.Now())
	if !ok {
		t.Fatal("expected item to normalize")
	}
	if a.Source != "BBC News" || a.Country != "uk" {
		t.Errorf("source/country = %q/%q", a.Source, a.Country)
	}
	if a.Content != "<div>Full story</div>" {
		t.Errorf("content should keep raw HTML, got %q", a.Content)
	}
	if strings.Contains(a.Summary, "<") {
		t.Errorf("summary should be free of markup: %q", a.Summary)
	}
	if n := utf8.RuneCountInString(a.Summary); n > 153 {
		t.Errorf("summary has %d characters, want <= 153", n)
	}
	if !a.PubDate.Equal(pub) || a.PubDate.Location() != time.UTC {
		t.Errorf("pubDate = %v, want %v in UTC", a.PubDate, pub)
	}
	if a.Image != PlaceholderImage("https://x/election") {
		t.Errorf("expected placeholder image, got %q", a.Image)
	}
	if a.AIProcessed {
		t.Error("new articles must not be marked processed")
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	updated := now.Add(-time.Hour)

	onlyContent := &gofeed.Item{Title: "A", Link: "https://x/a", Content: "<p>Body text</p>"}
	a, _ := Normalize(onlyContent, bbc, now)
	if a.Summary != "Body text..." {
		t.Errorf("summary should come from content, got %q", a.Summary)
	}
	if !a.PubDate.Equal(now) {
		t.Errorf("missing date should default to now, got %v", a.PubDate)
	}

	bare := &gofeed.Item{Title: "B", Link: "https://x/b", UpdatedParsed: &updated}
	b, _ := Normalize(bare, bbc, now)
	if b.Content != b.Summary {
		t.Errorf("content should fall back to summary, got %q vs %q", b.Content, b.Summary)
	}
	if !b.PubDate.Equal(updated) {
		t.Errorf("pubDate should fall back to updated, got %v", b.PubDate)
	}

	descOnly := &gofeed.Item{Title: "C", Link: "https://x/c", Description: "Plain description"}
	c, _ := Normalize(descOnly, bbc, now)
	if c.Content != "Plain description" {
		t.Errorf("content should fall back to description, got %q", c.Content)
	}
}

func TestSortByPubDate(t *testing.T) {
	base := time.Now()
	articles := []*database.Article{
		{URL: "old", PubDate: base.Add(-2 * time.Hour)},
		{URL: "new", PubDate: base},
		{URL: "tie-1", PubDate: base.Add(-time.Hour)},
		{URL: "tie-2", PubDate: base.Add(-time.Hour)},
	}
	SortByPubDate(articles)

	want := []string{"new", "tie-1", "tie-2", "old"}
	for i, w := range want {
		if articles[i].URL != w {
			t.Errorf("position %d = %s, want %s", i, articles[i].URL, w)
		}
	}
}
