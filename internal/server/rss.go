package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/tkilaker/newsio/internal/config"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/sources"
)

// GenerateRSSFeed creates an RSS feed from articles
func GenerateRSSFeed(articles []*database.Article, cfg *config.Config, country string) (string, error) {
	title := cfg.SiteTitle
	link := cfg.SiteURL + "/"
	if country != sources.Global {
		title = fmt.Sprintf("%s (%s)", cfg.SiteTitle, countryLabel(country))
		link = cfg.SiteURL + countryPath(country)
	}

	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: cfg.SiteDescription,
		Created:     time.Now(),
	}

	feed.Items = make([]*feeds.Item, 0, len(articles))
	for _, article := range articles {
		item := &feeds.Item{
			Title:       article.Title,
			Link:        &feeds.Link{Href: article.URL},
			Source:      &feeds.Link{Href: article.URL},
			Author:      &feeds.Author{Name: article.Source},
			Description: article.Summary,
			Id:          article.URL,
			Created:     article.PubDate,
		}
		if article.ID != "" {
			item.Id = fmt.Sprintf("%s/articles/%s", cfg.SiteURL, article.ID)
		}
		if article.AIData != nil && article.AIData.Summary != "" {
			item.Description = article.AIData.Summary
		}
		if article.Image != "" {
			item.Enclosure = &feeds.Enclosure{Url: article.Image, Type: "image/jpeg"}
		}

		feed.Items = append(feed.Items, item)
	}

	// Generate RSS 2.0 format
	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}

	return rss, nil
}

// handleRSS generates and serves the RSS feed, optionally for one country
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	country := news.NormalizeCountry(r.URL.Query().Get("country"))
	if !s.registry.HasCountry(country) {
		http.Error(w, "Unknown country", http.StatusNotFound)
		return
	}

	articles, err := s.news.Latest(r.Context(), country)
	if err != nil {
		slog.Error("failed to load articles for RSS", "error", err)
		http.Error(w, "Failed to fetch articles", http.StatusInternalServerError)
		return
	}

	feed, err := GenerateRSSFeed(articles, s.config, country)
	if err != nil {
		slog.Error("failed to generate RSS", "error", err)
		http.Error(w, "Failed to generate feed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write([]byte(feed))
}
