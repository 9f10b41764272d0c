package server

import (
	"encoding/xml"
	"net/http"
	"time"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod"`
	ChangeFreq string  `xml:"changefreq"`
	Priority   float64 `xml:"priority"`
}

// GenerateSitemap lists the home page and one page per country.
func GenerateSitemap(siteURL string, countries []string, now time.Time) ([]byte, error) {
	lastMod := now.UTC().Format(time.RFC3339)
	set := urlSet{Xmlns: sitemapNS}
	set.URLs = append(set.URLs, sitemapURL{Loc: siteURL, LastMod: lastMod, ChangeFreq: "hourly", Priority: 1})
	for _, c := range countries {
		set.URLs = append(set.URLs, sitemapURL{Loc: siteURL + "/" + c, LastMod: lastMod, ChangeFreq: "hourly", Priority: 0.8})
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := GenerateSitemap(s.config.SiteURL, s.registry.Countries(), time.Now())
	if err != nil {
		http.Error(w, "Failed to generate sitemap", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Write(body)
}
