package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AI-Template-SDK/senso-visibility/internal/providers/common"
	openaiprovider "github.com/AI-Template-SDK/senso-visibility/internal/providers/openai"
)

const completionBody = `{
	"id": "chatcmpl-123",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-4.1-mini",
	"choices": [{
		"index": 0,
		"finish_reason": "stop",
		"message": {"role": "assistant", "content": "Acme is great. BetaCorp is cheaper.", "refusal": null}
	}],
	"usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
}`

func newTestProvider(t *testing.T, handler http.HandlerFunc) *openaiprovider.Provider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openaiprovider.NewProvider("sk-test", "gpt-4.1-mini", option.WithBaseURL(server.URL+"/v1/"))
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	})

	resp, err := provider.Generate(context.Background(), common.GenerationRequest{
		SystemPrompt:    "You are advising a developer in Europe.",
		UserPrompt:      "Which CRM should I use?",
		MaxOutputTokens: 500,
		Temperature:     common.Float64Ptr(0),
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme is great. BetaCorp is cheaper.", resp.Text)
	assert.Equal(t, 42, resp.Usage.PromptTokens)
	assert.Equal(t, 9, resp.Usage.CompletionTokens)

	assert.Equal(t, "gpt-4.1-mini", body["model"])
	assert.EqualValues(t, 500, body["max_completion_tokens"])
	assert.EqualValues(t, 0, body["temperature"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
}

func TestGenerateOmitsEmptySystemPrompt(t *testing.T) {
	var body map[string]any
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	})

	_, err := provider.Generate(context.Background(), common.GenerationRequest{
		UserPrompt: "Classify this.",
		Model:      "gpt-4.1",
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", body["model"])
	assert.NotContains(t, body, "temperature")
	assert.Len(t, body["messages"], 1)
}

func TestGenerateClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   common.ErrorKind
	}{
		{"unauthorized", http.StatusUnauthorized, common.KindAuthentication},
		{"bad request", http.StatusBadRequest, common.KindClient},
		{"server error", http.StatusInternalServerError, common.KindTransient},
		{"unavailable", http.StatusServiceUnavailable, common.KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error": {"message": "nope", "type": "error"}}`))
			})

			_, err := provider.Generate(context.Background(), common.GenerationRequest{UserPrompt: "hi"})
			require.Error(t, err)
			assert.Equal(t, tt.kind, common.KindOf(err))
			assert.EqualValues(t, 1, atomic.LoadInt32(&calls), "SDK retries must be disabled")
		})
	}
}

func TestGenerateNoChoices(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": [], "usage": {}}`))
	})

	_, err := provider.Generate(context.Background(), common.GenerationRequest{UserPrompt: "hi"})
	assert.Equal(t, common.KindParse, common.KindOf(err))
}

func TestGetProviderName(t *testing.T) {
	provider := openaiprovider.NewProvider("sk-test", "gpt-4.1")
	assert.Equal(t, "openai", provider.GetProviderName())
}
