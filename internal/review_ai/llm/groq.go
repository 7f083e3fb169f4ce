package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultGroqURL = "https://api.groq.com/openai/v1/chat/completions"

// Groq calls the OpenAI-compatible chat completions endpoint.
type Groq struct {
	HTTPClient *http.Client
	APIKey     string
	Model      string
	URL        string
}

func NewGroq(o Options) *Groq {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	g := &Groq{
		HTTPClient: &http.Client{Timeout: timeout},
		APIKey:     o.APIKey,
		Model:      o.Model,
		URL:        o.BaseURL,
	}
	if g.Model == "" {
		g.Model = DefaultGroqModel
	}
	if g.URL == "" {
		g.URL = DefaultGroqURL
	}
	return g
}

func (g *Groq) Name() string { return "groq:" + g.Model }

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (g *Groq) Complete(ctx context.Context, r Request) (string, error) {
	b, err := json.Marshal(chatReq{
		Model: g.Model,
		Messages: []chatMessage{
			{Role: "system", Content: r.System},
			{Role: "user", Content: r.User},
		},
		Temperature: r.Temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.APIKey)

	resp, err := g.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("groq: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq: decode response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Choices[0].Message.Content, nil
}
