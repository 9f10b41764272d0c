package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/sources"
)

// handleIndex renders the global feed
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderFeed(w, r, sources.Global)
}

// handleCountry renders the feed for one country tab
func (s *Server) handleCountry(w http.ResponseWriter, r *http.Request) {
	country := news.NormalizeCountry(chi.URLParam(r, "country"))
	if !s.registry.HasCountry(country) {
		http.NotFound(w, r)
		return
	}
	s.renderFeed(w, r, country)
}

func (s *Server) renderFeed(w http.ResponseWriter, r *http.Request, country string) {
	ctx := r.Context()

	articles, err := s.news.Latest(ctx, country)
	if err != nil {
		slog.Error("failed to load articles", "country", country, "error", err)
		http.Error(w, "Failed to load articles", http.StatusInternalServerError)
		return
	}

	// An empty store has never been fetched; start a cycle and tell the
	// reader to wait for it.
	fetching := s.cycle.Progress().IsActive()
	if len(articles) == 0 && !fetching {
		total, err := s.store.CountArticles(ctx)
		if err != nil {
			slog.Error("failed to count articles", "error", err)
		} else if total == 0 {
			s.fetchInBackground()
			fetching = true
		}
	}

	trending, err := s.news.Trending(ctx)
	if err != nil {
		slog.Warn("failed to load trending tags", "error", err)
	}

	page := FeedPage(feedPageData{
		Country:  country,
		Articles: articles,
		Trending: trending,
		Fetching: fetching,
		Now:      time.Now(),
	})
	templ.Handler(Layout(s.pageMeta(country), page)).ServeHTTP(w, r)
}

// handleArticleDetail renders a single article
func (s *Server) handleArticleDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	article, err := s.store.GetArticleByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("failed to load article", "id", id, "error", err)
		http.Error(w, "Failed to load article", http.StatusInternalServerError)
		return
	}

	meta := s.pageMeta(article.Country)
	meta.Title = article.Title + " | " + s.config.SiteTitle
	if article.AIData != nil && article.AIData.SEOMeta != "" {
		meta.Description = article.AIData.SEOMeta
	} else {
		meta.Description = article.Summary
	}
	templ.Handler(Layout(meta, ArticleDetailPage(article))).ServeHTTP(w, r)
}

func (s *Server) pageMeta(country string) pageMeta {
	title := s.config.SiteTitle
	if country != sources.Global {
		title = countryLabel(country) + " news | " + title
	}
	return pageMeta{
		Title:       title,
		Description: s.config.SiteDescription,
		Country:     country,
		Countries:   s.registry.Countries(),
	}
}
