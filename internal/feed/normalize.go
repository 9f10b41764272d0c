package feed

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/sources"
)

// Normalize converts a feed item into an article for src. Items without a
// title or an absolute http(s) link are rejected. now stands in for a
// missing publish date.
func Normalize(item *gofeed.Item, src sources.Source, now time.Time) (*database.Article, bool) {
	if item == nil {
		return nil, false
	}
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || !isWebURL(link) {
		return nil, false
	}

	raw := item.Description
	if strings.TrimSpace(raw) == "" {
		raw = item.Content
	}
	summary := Summarize(raw)

	content := item.Content
	if strings.TrimSpace(content) == "" {
		content = item.Description
	}
	if strings.TrimSpace(content) == "" {
		content = summary
	}

	image, ok := ResolveImage(item)
	if !ok {
		image = PlaceholderImage(link)
	}

	return &database.Article{
		Title:   StripHTML(title),
		Summary: summary,
		Content: content,
		URL:     link,
		PubDate: publishedAt(item, now),
		Source:  src.Name,
		Country: src.Country,
		Image:   image,
	}, true
}

// NormalizeAll converts every usable item of a parsed feed, keeping feed order.
func NormalizeAll(items []*gofeed.Item, src sources.Source, now time.Time) []*database.Article {
	articles := make([]*database.Article, 0, len(items))
	for _, item := range items {
		if a, ok := Normalize(item, src, now); ok {
			articles = append(articles, a)
		}
	}
	return articles
}

// SortByPubDate orders articles newest first, keeping input order for ties.
func SortByPubDate(articles []*database.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PubDate.After(articles[j].PubDate)
	})
}

func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func publishedAt(item *gofeed.Item, now time.Time) time.Time {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC()
	default:
		return now.UTC()
	}
}
