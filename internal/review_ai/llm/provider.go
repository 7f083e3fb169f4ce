package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotConfigured = errors.New("llm api key is not configured")
	ErrEmptyResponse = errors.New("llm returned an empty response")
)

// Request is one system+user completion with a token cap.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Provider completes one chat request and returns the raw text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	DefaultGroqModel   = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultGeminiModel = "gemini-2.5-flash"
)

type Options struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the provider named in o. A missing key is ErrNotConfigured.
func New(ctx context.Context, o Options) (Provider, error) {
	if o.APIKey == "" {
		return nil, ErrNotConfigured
	}
	switch strings.ToLower(o.Provider) {
	case "", ProviderGroq:
		return NewGroq(o), nil
	case ProviderGemini:
		return NewGemini(ctx, o)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", o.Provider)
	}
}
