package feed

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"<p>Hello</p>", "Hello"},
		{"<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"No tags here", "No tags here"},
		{"<div>  Multiple   spaces  </div>", "Multiple spaces"},
		{"", ""},
		{`<a href="url">Link</a> text`, "Link text"},
		{"Fish &amp; chips", "Fish & chips"},
		{"Unclosed <span class=x", "Unclosed"},
		{"&lt;b&gt;x&lt;/b&gt;", "x"},
		{"&lt;p&gt;Encoded &amp;amp; nested&lt;/p&gt;", "Encoded &amp; nested"},
		{"5 &lt; 6 votes", "5 < 6 votes"},
	}
	for _, tt := range tests {
		got := StripHTML(tt.input)
		if got != tt.want {
			t.Errorf("StripHTML(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"<p></p>", ""},
		{"<p>Short story</p>", "Short story..."},
		{"&lt;b&gt;x&lt;/b&gt;", "x..."},
	}
	for _, tt := range tests {
		got := Summarize(tt.input)
		if got != tt.want {
			t.Errorf("Summarize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSummarizeLengthBound(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 500),
		"<p>" + strings.Repeat("x", 10000) + "</p>",
		strings.Repeat("ニュース", 100),
		strings.Repeat("a", SummaryLength),
		strings.Repeat("a", SummaryLength+1),
	}
	for _, in := range inputs {
		got := Summarize(in)
		if n := utf8.RuneCountInString(got); n > SummaryLength+len(ellipsis) {
			t.Errorf("summary has %d characters, want <= %d", n, SummaryLength+len(ellipsis))
		}
		if !strings.HasSuffix(got, ellipsis) {
			t.Errorf("summary %q should end with ellipsis", got)
		}
	}
}

func TestTruncateUTF8(t *testing.T) {
	got := truncate("こんにちは世界です", 5)
	if got != "こんにちは" {
		t.Errorf("truncate by rune = %q, want %q", got, "こんにちは")
	}
}
