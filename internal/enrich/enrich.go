// Package enrich asks an LLM for a summary, category, keywords, hashtags and
// an SEO description of an article.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tkilaker/newsio/internal/database"
)

// ErrDisabled is returned by New when no API key is configured.
var ErrDisabled = errors.New("AI enrichment not configured")

// Enricher turns article text into enrichment data.
type Enricher interface {
	Enrich(ctx context.Context, text string) (*database.AIData, error)
}

// Options configures a provider.
type Options struct {
	Provider string // "claude" or "openai"
	Model    string
	APIKey   string
	// BaseURL overrides the provider endpoint; used by tests.
	BaseURL string
	Timeout time.Duration
}

// New creates the configured provider.
func New(opts Options) (Enricher, error) {
	if opts.APIKey == "" {
		return nil, ErrDisabled
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch opts.Provider {
	case "", "claude":
		p := &claudeProvider{apiKey: opts.APIKey, model: opts.Model, endpoint: opts.BaseURL, client: client}
		if p.model == "" {
			p.model = "claude-haiku-4-5-20251001"
		}
		if p.endpoint == "" {
			p.endpoint = "https://api.anthropic.com/v1/messages"
		}
		return p, nil
	case "openai":
		p := &openaiProvider{apiKey: opts.APIKey, model: opts.Model, endpoint: opts.BaseURL, client: client}
		if p.model == "" {
			p.model = "gpt-4o-mini"
		}
		if p.endpoint == "" {
			p.endpoint = "https://api.openai.com/v1/chat/completions"
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q (valid: claude, openai)", opts.Provider)
	}
}

// maxInputRunes bounds the article text sent to the model.
const maxInputRunes = 12000

const systemPrompt = `You process publicly syndicated news articles for a news aggregator.
Write fluent English optimized for search discoverability in the US, UK, Canada, Australia and the EU.
Keep the tone modern, factual and professional.`

const enrichPrompt = `Process the following news article content.

Return ONLY a JSON object with these fields:
  "summary":  a summary of the article in under 100 words
  "category": the topic (politics, tech, sports, economy, world, entertainment, ...)
  "keywords": 3 to 5 relevant SEO keywords
  "hashtags": 2 to 3 relevant hashtags, each starting with #
  "seo_meta": a one-line SEO meta description

Article:
%s`

func buildPrompt(text string) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > maxInputRunes {
		runes = runes[:maxInputRunes]
	}
	return fmt.Sprintf(enrichPrompt, string(runes))
}

// parseResponse extracts the JSON object from a model reply and clamps the
// list fields to the sizes the UI expects.
func parseResponse(text string) (*database.AIData, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var data database.AIData
	if err := json.Unmarshal([]byte(text[start:end+1]), &data); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	data.Summary = strings.TrimSpace(data.Summary)
	if data.Summary == "" {
		return nil, fmt.Errorf("model response has no summary")
	}
	data.Category = strings.ToLower(strings.TrimSpace(data.Category))
	data.SEOMeta = strings.TrimSpace(data.SEOMeta)
	data.Keywords = clean(data.Keywords, 5, func(s string) string { return s })
	data.Hashtags = clean(data.Hashtags, 3, func(s string) string {
		s = strings.ReplaceAll(s, " ", "")
		if !strings.HasPrefix(s, "#") {
			s = "#" + s
		}
		return s
	})
	return &data, nil
}

func clean(in []string, max int, fix func(string) string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || s == "#" {
			continue
		}
		s = fix(s)
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
		if len(out) == max {
			break
		}
	}
	return out
}
