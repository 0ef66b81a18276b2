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

func TestClient_Configured(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{name: "anthropic complete", cfg: Config{Provider: ProviderAnthropic, APIKey: "sk-test", Model: "claude"}, want: true},
		{name: "anthropic missing key", cfg: Config{Provider: ProviderAnthropic, Model: "claude"}, want: false},
		{name: "anthropic missing model", cfg: Config{Provider: ProviderAnthropic, APIKey: "sk-test"}, want: false},
		{name: "ollama complete", cfg: Config{Provider: ProviderOllama, BaseURL: "http://localhost:11434", Model: "llama3"}, want: true},
		{name: "ollama missing base url", cfg: Config{Provider: ProviderOllama, Model: "llama3"}, want: false},
		{name: "unknown provider", cfg: Config{Provider: "petrol", Model: "v8"}, want: false},
		{name: "empty", cfg: Config{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewClient(tt.cfg).Configured())
		})
	}
}

func TestClient_Complete_Ollama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "say hi", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "  hi there\n"}},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderOllama, BaseURL: srv.URL, Model: "llama3"})

	got, err := client.Complete(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
}

func TestClient_Complete_Anthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-sonnet", req.Model)
		assert.Positive(t, req.MaxTokens)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "SELECT 1"}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderAnthropic, BaseURL: srv.URL, APIKey: "sk-test", Model: "claude-sonnet"})

	got, err := client.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)
}

func TestClient_Complete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderOllama, BaseURL: srv.URL, Model: "missing"})

	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "model not found")
}

func TestClient_Complete_EmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderOllama, BaseURL: srv.URL, Model: "llama3"})

	_, err := client.Complete(context.Background(), "hello")
	assert.Error(t, err)
}

func TestClient_Complete_UnsupportedProvider(t *testing.T) {
	client := NewClient(Config{Provider: "petrol"})

	_, err := client.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported llm provider")
}

func TestClient_GenerateSQL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "SELECT * FROM users"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderOllama, BaseURL: srv.URL, Model: "llama3"})

	got, err := client.GenerateSQL(context.Background(), "write a query")
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM users", got)
}

func TestClient_GenerateSQL_WrapsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderOllama, BaseURL: srv.URL, Model: "llama3"})

	_, err := client.GenerateSQL(context.Background(), "write a query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sql generation request failed")
}

func TestClient_BaseURLTrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": "ok"}}},
		})
	}))
	defer srv.Close()

	client := NewClient(Config{Provider: ProviderOllama, BaseURL: srv.URL + "/", Model: "llama3"})

	_, err := client.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "/v1/chat/completions", gotPath)
}
