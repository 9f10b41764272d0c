package enrich

import (
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/tkilaker/newsio/internal/database"
	"github.com/tkilaker/newsio/internal/feed"
)

// PlainText returns readable text for an HTML fragment. Readability handles
// full markup; short or unparseable fragments fall back to tag stripping.
func PlainText(html, pageURL string) string {
	if !strings.Contains(html, "<") {
		return strings.Join(strings.Fields(html), " ")
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		u = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err == nil {
		if text := strings.Join(strings.Fields(article.TextContent), " "); text != "" {
			return text
		}
	}
	return feed.StripHTML(html)
}

// ArticleText is the text sent for enrichment: title followed by body.
func ArticleText(a *database.Article) string {
	body := PlainText(a.Content, a.URL)
	if body == "" {
		body = feed.StripHTML(a.Summary)
	}
	return a.Title + "\n\n" + body
}
