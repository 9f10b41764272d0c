// Package news answers read queries over the aggregated articles.
package news

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/feed"
	"github.com/tkilaker/newsio/internal/sources"
)

const (
	// MaxArticles caps every article list.
	MaxArticles = 50
	// TrendingWindow is how many recent articles feed the trending count.
	TrendingWindow = 100
	// TrendingLimit is how many tags are reported.
	TrendingLimit = 10
)

// Tag is a hashtag with the number of articles carrying it.
type Tag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Service reads articles from the store or, for live reads, straight from
// the feeds.
type Service struct {
	store    database.Store
	fetcher  feed.Fetcher
	registry *sources.Registry
}

// NewService creates a query service.
func NewService(store database.Store, fetcher feed.Fetcher, registry *sources.Registry) *Service {
	return &Service{store: store, fetcher: fetcher, registry: registry}
}

// NormalizeCountry lowercases and trims a country filter. Empty means
// global.
func NormalizeCountry(country string) string {
	country = strings.ToLower(strings.TrimSpace(country))
	if country == "" {
		return sources.Global
	}
	return country
}

// Latest returns up to MaxArticles stored articles for country, newest
// first. The global country applies no filter.
func (s *Service) Latest(ctx context.Context, country string) ([]*database.Article, error) {
	filter := database.ArticleFilter{Limit: MaxArticles}
	if c := NormalizeCountry(country); c != sources.Global {
		filter.Country = c
	}
	articles, err := s.store.ListArticles(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return articles, nil
}

// Live fetches the country's feeds now without touching the store.
// Failing feeds contribute nothing.
func (s *Service) Live(ctx context.Context, country string) ([]*database.Article, error) {
	list := s.registry.ForCountry(NormalizeCountry(country))
	articles := feed.Articles(feed.FetchAll(ctx, s.fetcher, list))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed.SortByPubDate(articles)
	if len(articles) > MaxArticles {
		articles = articles[:MaxArticles]
	}
	return articles, nil
}

// Trending counts hashtags over the most recent stored articles.
func (s *Service) Trending(ctx context.Context) ([]Tag, error) {
	articles, err := s.store.ListArticles(ctx, database.ArticleFilter{Limit: TrendingWindow})
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	return TrendingTags(articles, TrendingLimit), nil
}

// TrendingTags counts the enrichment hashtags of articles and returns the
// top limit by count. Ties keep the order in which tags were first seen.
func TrendingTags(articles []*database.Article, limit int) []Tag {
	index := make(map[string]int)
	var tags []Tag

	for _, a := range articles {
		if a.AIData == nil {
			continue
		}
		for _, h := range a.AIData.Hashtags {
			name := strings.TrimSpace(strings.TrimLeft(h, "#"))
			if name == "" {
				continue
			}
			if i, ok := index[name]; ok {
				tags[i].Count++
				continue
			}
			index[name] = len(tags)
			tags = append(tags, Tag{Tag: name, Count: 1})
		}
	}

	sort.SliceStable(tags, func(i, j int) bool {
		return tags[i].Count > tags[j].Count
	})
	if limit >= 0 && len(tags) > limit {
		tags = tags[:limit]
	}
	return tags
}
