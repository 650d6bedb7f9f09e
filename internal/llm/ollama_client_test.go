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

func TestOllamaClientComplete(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		resp := map[string]interface{}{
			"message":           map[string]string{"role": "assistant", "content": "pong"},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 5,
			"eval_count":        2,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "llama3", 10)
	require.NoError(t, err)

	resp, err := client.CompleteWithRequest(context.Background(), &CompletionRequest{
		SystemPrompt: "be brief",
		Messages:     []*Message{{Role: "user", Content: "ping"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 5, resp.Usage.PromptTokens)

	// System prompt is prepended as the first message.
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.False(t, gotReq.Stream)
}

func TestOllamaClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewOllamaClient(server.URL, "llama3", 10)
	require.NoError(t, err)

	_, err = client.CompleteWithRequest(context.Background(), &CompletionRequest{
		Messages: []*Message{{Role: "user", Content: "ping"}},
	})
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	assert.True(t, isRetryable(err))
}

func TestNewOllamaClientRequiresModel(t *testing.T) {
	_, err := NewOllamaClient("", "", 10)
	assert.Error(t, err)
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	_, err := NewOpenAIClient("", "", "gpt-4o-mini", 10)
	assert.Error(t, err)
}
