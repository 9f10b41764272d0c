package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tkilaker/newsio/internal/database"
)

// --- Claude provider ---

type claudeProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

type claudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (c *claudeProvider) Enrich(ctx context.Context, text string) (*database.AIData, error) {
	body, err := json.Marshal(claudeRequest{
		Model:     c.model,
		MaxTokens: 512,
		System:    systemPrompt,
		Messages:  []claudeMessage{{Role: "user", Content: buildPrompt(text)}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	var cr claudeResponse
	if err := doJSON(c.client, req, "claude", &cr); err != nil {
		return nil, err
	}
	if len(cr.Content) == 0 {
		return nil, fmt.Errorf("empty claude response")
	}
	return parseResponse(cr.Content[0].Text)
}

// --- OpenAI provider ---

type openaiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

type openaiRequest struct {
	Model          string          `json:"model"`
	Messages       []openaiMessage `json:"messages"`
	ResponseFormat *openaiFormat   `json:"response_format,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiFormat struct {
	Type string `json:"type"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *openaiProvider) Enrich(ctx context.Context, text string) (*database.AIData, error) {
	body, err := json.Marshal(openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(text)},
		},
		ResponseFormat: &openaiFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	var or openaiResponse
	if err := doJSON(o.client, req, "openai", &or); err != nil {
		return nil, err
	}
	if len(or.Choices) == 0 {
		return nil, fmt.Errorf("empty openai response")
	}
	return parseResponse(or.Choices[0].Message.Content)
}

func doJSON(client *http.Client, req *http.Request, name string, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s API error: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s API %d: %s", name, resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s API: failed to decode response: %w", name, err)
	}
	return nil
}
