package feed

import (
	"html"
	"regexp"
	"strings"
)

// SummaryLength is the number of characters kept by Summarize before the
// ellipsis is appended.
const SummaryLength = 150

const ellipsis = "..."

var (
	tagPattern = regexp.MustCompile(`<[^>]*>?`)
	// Tags that only appear once entities are decoded. A bare "<" in text
	// such as "5 < 6" is kept.
	escapedTagPattern = regexp.MustCompile(`</?[a-zA-Z!][^>]*>?`)
)

// StripHTML removes markup tags, decodes entities and collapses whitespace.
// Markup that was entity-encoded in the source is removed as well.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = escapedTagPattern.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// Summarize strips markup from s and cuts it to SummaryLength runes followed
// by an ellipsis. The ellipsis is always present for non-empty text.
func Summarize(s string) string {
	text := StripHTML(s)
	if text == "" {
		return ""
	}
	return truncate(text, SummaryLength) + ellipsis
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
