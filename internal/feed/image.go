package feed

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Content patterns tried in order when the item carries no structured image.
var imagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`<img[^>]+src=["']([^"'>]+)["']`),
	regexp.MustCompile(`<source[^>]+srcset=["']([^"'\s>,]+)`),
	regexp.MustCompile(`"image"\s*:\s*"([^"]+)"`),
}

// ResolveImage finds a representative image for a feed item: an enclosure
// URL, then a media:content url attribute, then an image referenced from the
// item's HTML. The second result is false when nothing matched.
func ResolveImage(item *gofeed.Item) (string, bool) {
	if u := enclosureURL(item); u != "" {
		return u, true
	}
	if u := mediaContentURL(item); u != "" {
		return u, true
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	if u := contentImageURL(body); u != "" {
		return u, true
	}
	return "", false
}

// PlaceholderImage returns a stable stock image keyed by the article URL.
func PlaceholderImage(articleURL string) string {
	h := sha256.Sum256([]byte(articleURL))
	return fmt.Sprintf("https://picsum.photos/seed/%x/600/400", h[:8])
}

func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc != nil && strings.TrimSpace(enc.URL) != "" {
			return strings.TrimSpace(enc.URL)
		}
	}
	return ""
}

func mediaContentURL(item *gofeed.Item) string {
	media, ok := item.Extensions["media"]
	if !ok {
		return ""
	}
	for _, ext := range media["content"] {
		if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
			return u
		}
	}
	// media:group wraps media:content in some feeds.
	for _, group := range media["group"] {
		for _, ext := range group.Children["content"] {
			if u := strings.TrimSpace(ext.Attrs["url"]); u != "" {
				return u
			}
		}
	}
	return ""
}

func contentImageURL(body string) string {
	if body == "" {
		return ""
	}
	for _, re := range imagePatterns {
		if m := re.FindStringSubmatch(body); len(m) > 1 && m[1] != "" {
			return m[1]
		}
	}
	return ""
}
