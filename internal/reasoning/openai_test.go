package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/autoops/internal/config"
	"github.com/miradorstack/autoops/internal/utils"
)

func chatServer(t *testing.T, handler func(req map[string]any) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		status, content := handler(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProviderComplete(t *testing.T) {
	var seen map[string]any
	srv := chatServer(t, func(req map[string]any) (int, string) {
		seen = req
		return http.StatusOK, `{"decision":"monitor","reason":"fine"}`
	})

	p := NewOpenAIProvider(OpenAIConfig{Name: "openai", APIKey: "k", Model: "gpt-4o", BaseURL: srv.URL + "/v1"}, nil)
	out, err := p.Complete(context.Background(), "sys", "user", Options{JSONMode: true, Temperature: 0.2})
	require.NoError(t, err)
	assert.Equal(t, `{"decision":"monitor","reason":"fine"}`, out)
	assert.Equal(t, "gpt-4o", seen["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, seen["response_format"])
	msgs := seen["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestOpenAIProviderServerError(t *testing.T) {
	srv := chatServer(t, func(map[string]any) (int, string) { return http.StatusInternalServerError, "" })
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "m", BaseURL: srv.URL + "/v1"}, nil)

	_, err := p.Complete(context.Background(), "sys", "user", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrProviderError)
}

func TestOpenAIProviderEmptyContent(t *testing.T) {
	srv := chatServer(t, func(map[string]any) (int, string) { return http.StatusOK, "  " })
	p := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "m", BaseURL: srv.URL + "/v1"}, nil)

	_, err := p.Complete(context.Background(), "sys", "user", Options{})
	assert.ErrorIs(t, err, utils.ErrProviderError)
}

func TestNewOpenAIProviderWithoutKey(t *testing.T) {
	p := NewOpenAIProvider(OpenAIConfig{Model: "m"}, nil)
	_, err := p.Complete(context.Background(), "sys", "user", Options{})
	assert.ErrorIs(t, err, utils.ErrProviderNotConfigured)
	assert.Equal(t, "none", p.Name())
}

func TestFromConfigSelectsTogether(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.Provider = "together"
	cfg.LLM.Together.APIKey = "tk"
	p := FromConfig(&cfg, nil)
	assert.Equal(t, "together", p.Name())
}

type slowProvider struct{ delay time.Duration }

func (s slowProvider) Name() string { return "slow" }

func (s slowProvider) Complete(ctx context.Context, _, _ string, _ Options) (string, error) {
	select {
	case <-time.After(s.delay):
		return "late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestCompleteWithTimeoutExpires(t *testing.T) {
	start := time.Now()
	_, err := CompleteWithTimeout(context.Background(), slowProvider{delay: time.Second}, 20*time.Millisecond, "s", "u", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrProviderTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCompleteWithTimeoutReturnsAnswer(t *testing.T) {
	out, err := CompleteWithTimeout(context.Background(), slowProvider{delay: time.Millisecond}, time.Second, "s", "u", Options{})
	require.NoError(t, err)
	assert.Equal(t, "late", out)
}

func TestCompleteWithTimeoutCallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := CompleteWithTimeout(ctx, slowProvider{delay: time.Second}, time.Second, "s", "u", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
