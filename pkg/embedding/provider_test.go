package embedding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func magnitude(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestNormalizeVector(t *testing.T) {
	assert.InDelta(t, 1.0, magnitude(normalizeVector([]float32{3, 4})), 1e-6)
	assert.Equal(t, []float32{0, 0}, normalizeVector([]float32{0, 0}))
}

func TestOllamaProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		fmt.Fprint(w, `{"embedding":[3,4]}`)
	}))
	defer server.Close()

	resp, err := NewOllamaProvider(server.URL, "").Generate(context.Background(), "hello", TaskRetrievalQuery)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, resp.Embedding.Values, 1e-6)
}

func TestOpenAIProviderGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0,2]}]}`)
	}))
	defer server.Close()

	resp, err := NewOpenAIProvider("sk-test", server.URL+"/v1", "").Generate(context.Background(), "hello", TaskRetrievalDocument)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 1}, resp.Embedding.Values, 1e-6)
}

func TestNewEmbeddingProvider(t *testing.T) {
	_, err := NewEmbeddingProvider(Settings{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewEmbeddingProvider(Settings{Provider: "jina"})
	assert.Error(t, err)

	p, err := NewEmbeddingProvider(Settings{Provider: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &OllamaProvider{}, p)
}
