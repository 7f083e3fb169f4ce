package llm

import (
	"context"
	"strings"

	genai "google.golang.org/genai"
)

// Gemini wraps the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

func NewGemini(ctx context.Context, o Options) (*Gemini, error) {
	if o.APIKey == "" {
		return nil, ErrNotConfigured
	}
	cfg := &genai.ClientConfig{APIKey: o.APIKey, Backend: genai.BackendGeminiAPI}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	model := o.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{cli: cli, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Complete(ctx context.Context, r Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(r.System, genai.RoleUser),
		Temperature:       genai.Ptr(r.Temperature),
	}
	if r.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(r.MaxTokens)
	}
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, genai.Text(r.User), cfg)
	if err != nil {
		return "", err
	}
	txt := resp.Text()
	if strings.TrimSpace(txt) == "" {
		return "", ErrEmptyResponse
	}
	return txt, nil
}
