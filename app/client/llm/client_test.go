package llm

import (
	"context"
	"eleven/app/config"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, provider string, handler http.HandlerFunc) Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), config.LLM{
		Provider: provider,
		APIKey:   "test-key",
		BaseURL:  srv.URL,
		Timeout:  5 * time.Second,
	})
	require.NoError(t, err)

	return client
}

func TestOpenAIComplete(t *testing.T) {
	var body map[string]any

	client := newTestClient(t, "openai", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":" hola "}}]}`))
	})

	text, err := client.Complete(context.Background(), Request{
		Model:   "gpt-4o-mini",
		System:  "eres ELEVEN",
		History: []Message{{Role: RoleUser, Content: "hola"}, {Role: RoleModel, Content: "¿qué tal?"}},
		Prompt:  "abre la calculadora",
		JSON:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", text)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 4)
	assert.NotNil(t, body["response_format"])
}

func TestOpenAIQuota(t *testing.T) {
	client := newTestClient(t, "openai", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`))
	})

	_, err := client.Complete(context.Background(), Request{Model: "m", Prompt: "hola"})
	require.Error(t, err)
	assert.True(t, IsQuota(err))
}

func TestOpenAIOtherErrorIsNotQuota(t *testing.T) {
	client := newTestClient(t, "openai", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request"}}`))
	})

	_, err := client.Complete(context.Background(), Request{Model: "m", Prompt: "hola"})
	require.Error(t, err)
	assert.False(t, IsQuota(err))
}

func TestGeminiComplete(t *testing.T) {
	client := newTestClient(t, "gemini", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-2.0-flash:generateContent")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"hola"}]}}]}`))
	})

	text, err := client.Complete(context.Background(), Request{
		Model:     "gemini-2.0-flash",
		System:    "eres ELEVEN",
		Prompt:    "describe",
		Image:     []byte{0x89, 0x50},
		ImageMIME: "image/png",
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", text)
}

func TestGeminiQuota(t *testing.T) {
	client := newTestClient(t, "gemini", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.Complete(context.Background(), Request{Model: "gemini-2.0-flash", Prompt: "hola"})
	require.Error(t, err)
	assert.True(t, IsQuota(err))
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewClient(context.Background(), config.LLM{Provider: "claude"})
	require.ErrorIs(t, err, ErrUnknownModel)
}
