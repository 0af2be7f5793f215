package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ragchat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamServer(t *testing.T, chunks []string, done bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		for _, c := range chunks {
			fmt.Fprintf(w, `{"model":"m","message":{"role":"assistant","content":%q},"done":false}`+"\n", c)
		}
		if done {
			fmt.Fprintln(w, `{"model":"m","message":{"role":"assistant","content":""},"done":true}`)
		}
	}))
}

func TestChat(t *testing.T) {
	var captured ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"model":"m","message":{"role":"assistant","content":"Hi there"},"done":true}`)
	}))
	defer server.Close()

	provider := NewOllamaProvider(server.URL, llm.Options{Model: "llama3"})
	out, err := provider.Chat(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "Hello"}},
		llm.WithTemperature(0.2), llm.WithMaxTokens(64), llm.WithStop("###"))

	require.NoError(t, err)
	assert.Equal(t, "Hi there", out)
	assert.Equal(t, "llama3", captured.Model)
	assert.False(t, captured.Stream)
	require.NotNil(t, captured.Options.Temperature)
	assert.Equal(t, 0.2, *captured.Options.Temperature)
	assert.Equal(t, 64, captured.Options.NumPredict)
	assert.Equal(t, []string{"###"}, captured.Options.Stop)
}

func TestChatStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, llm.Options{}).Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestChatStream(t *testing.T) {
	server := newStreamServer(t, []string{"Hel", "lo", "!"}, true)
	defer server.Close()

	var tokens []string
	full, err := NewOllamaProvider(server.URL, llm.Options{}).ChatStream(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "Hi"}},
		func(token string) error {
			tokens = append(tokens, token)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", "!"}, tokens)
	assert.Equal(t, "Hello!", full)
}

func TestChatStreamHandlerErrorStopsDelivery(t *testing.T) {
	server := newStreamServer(t, []string{"a", "b", "c"}, true)
	defer server.Close()

	calls := 0
	full, err := NewOllamaProvider(server.URL, llm.Options{}).ChatStream(context.Background(), nil,
		func(token string) error {
			calls++
			return errors.New("client gone")
		})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "abc", full)
}

func TestChatStreamWithoutDoneMarker(t *testing.T) {
	server := newStreamServer(t, []string{"partial"}, false)
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, llm.Options{}).ChatStream(context.Background(), nil,
		func(string) error { return nil })
	require.Error(t, err)
}
