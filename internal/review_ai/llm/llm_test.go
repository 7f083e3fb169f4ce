package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Buyers love it.  ", "Buyers love it."},
		{"fenced", "```\nBuyers love it.\n```", "Buyers love it."},
		{"fenced with lang", "```text\nBuyers love it.```", "Buyers love it."},
		{"json object", `{"summary": "Buyers love it."}`, "Buyers love it."},
		{"fenced json", "```json\n{\"text\": \"Buyers love it.\"}\n```", "Buyers love it."},
		{"json string", `"Buyers love it."`, "Buyers love it."},
		{"braces in prose", "{not json} really", "{not json} really"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestGroq_Complete(t *testing.T) {
	var got chatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Nice shirt."}}]}`))
	}))
	defer srv.Close()

	g := NewGroq(Options{APIKey: "k", BaseURL: srv.URL})
	out, err := g.Complete(context.Background(), Request{System: "sys", User: "usr", MaxTokens: 400, Temperature: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "Nice shirt.", out)

	assert.Equal(t, DefaultGroqModel, got.Model)
	assert.Equal(t, 400, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "usr", got.Messages[1].Content)
}

func TestGroq_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("empty") != "" {
			_, _ = w.Write([]byte(`{"choices":[]}`))
			return
		}
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGroq(Options{APIKey: "k", BaseURL: srv.URL}).Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = NewGroq(Options{APIKey: "k", BaseURL: srv.URL + "?empty=1"}).Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), Options{Provider: ProviderGroq})
	assert.ErrorIs(t, err, ErrNotConfigured)

	p, err := New(context.Background(), Options{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "groq:"+DefaultGroqModel, p.Name())

	_, err = New(context.Background(), Options{Provider: "openai", APIKey: "k"})
	assert.Error(t, err)
}
