package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/news"
	"github.com/tkilaker/newsio/internal/sources"
)

var countryLabels = map[string]string{
	sources.Global: "Global",
	"us":           "US",
	"uk":           "UK",
	"in":           "India",
}

func countryLabel(country string) string {
	if label, ok := countryLabels[country]; ok {
		return label
	}
	return strings.ToUpper(country)
}

func countryPath(country string) string {
	if country == sources.Global {
		return "/"
	}
	return "/" + country
}

type pageMeta struct {
	Title       string
	Description string
	Country     string
	Countries   []string
}

type feedPageData struct {
	Country  string
	Articles []*database.Article
	Trending []news.Tag
	Fetching bool
	Now      time.Time
}

// detailLabel names the link from a card to the stored article page.
func detailLabel(a *database.Article) string {
	if a.AIProcessed {
		return "AI summary"
	}
	return "Details"
}

func timeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour") + " ago"
	default:
		return plural(int(d/(24*time.Hour)), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
