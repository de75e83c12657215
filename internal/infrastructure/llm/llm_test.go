package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/infrastructure/config"
)

func TestOpenAIClient_Generate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"Acme is high risk."}}]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(NewRestyClient("test", 5*time.Second, zap.NewNop()), OpenAIConfig{
		BaseURL:     srv.URL + "/v1/",
		APIKey:      "sk-test",
		Model:       "gpt-4",
		MaxTokens:   150,
		Temperature: 0.7,
	})
	out, err := c.Generate(context.Background(), "who is Acme?")
	require.NoError(t, err)
	assert.Equal(t, "Acme is high risk.", out)

	assert.Equal(t, "gpt-4", got["model"])
	assert.EqualValues(t, 150, got["max_tokens"])
	assert.InDelta(t, 0.7, got["temperature"], 0.0001)
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "who is Acme?", msgs[0].(map[string]any)["content"])
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(NewRestyClient("test", 5*time.Second, zap.NewNop()), OpenAIConfig{BaseURL: srv.URL})
	out, err := c.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestOpenAIClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient(NewRestyClient("test", 5*time.Second, zap.NewNop()), OpenAIConfig{BaseURL: srv.URL})
	_, err := c.Generate(context.Background(), "hi")
	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.Contains(t, se.Error(), "rate limited")
}

func TestGeminiClient_Generate(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-1.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Three customers."}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(NewRestyClient("test", 5*time.Second, zap.NewNop()), srv.URL+"/v1beta", "g-key", "gemini-1.5-flash")
	out, err := c.Generate(context.Background(), "how many customers?")
	require.NoError(t, err)
	assert.Equal(t, "Three customers.", out)
	require.Len(t, got.Contents, 1)
	require.Len(t, got.Contents[0].Parts, 1)
	assert.Equal(t, "how many customers?", got.Contents[0].Parts[0].Text)
}

func TestGeminiClient_OutputFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"output":"flat answer"}`))
	}))
	defer srv.Close()

	c := NewGeminiClient(NewRestyClient("test", 5*time.Second, zap.NewNop()), srv.URL, "k", "m")
	out, err := c.Generate(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "flat answer", out)
}

func TestGeminiClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewGeminiClient(NewRestyClient("test", time.Second, zap.NewNop()), url, "SECRET-KEY-123", "m")
	_, err := c.Generate(context.Background(), "q")
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
	assert.NotContains(t, err.Error(), "SECRET-KEY-123")
	assert.NotContains(t, err.Error(), "key=")
}

func TestNewTextGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	gen, err := NewTextGenerator(config.LLMConfig{
		Provider: ProviderOpenAI,
		BaseURL:  srv.URL,
		Model:    "gpt-4",
		Timeout:  time.Second,
	}, zap.NewNop(), nil)
	require.NoError(t, err)
	out, err := gen.Generate(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	_, err = NewTextGenerator(config.LLMConfig{Provider: "bard"}, zap.NewNop(), nil)
	assert.Error(t, err)

	gen, err = NewTextGenerator(config.LLMConfig{Provider: ProviderGemini, Timeout: time.Second}, zap.NewNop(), nil)
	require.NoError(t, err)
	assert.NotNil(t, gen)
}
