package embedding

import (
	"context"
	"fmt"
	"math"
)

// Task types understood by providers that distinguish queries from documents.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

type Settings struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string
	OllamaModel   string
	GeminiAPIKey  string
}

func NewEmbeddingProvider(s Settings) (EmbeddingProvider, error) {
	switch s.Provider {
	case "openai":
		if s.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required for embeddings")
		}
		return NewOpenAIProvider(s.OpenAIAPIKey, s.OpenAIBaseURL, s.Model), nil
	case "ollama":
		return NewOllamaProvider(s.OllamaBaseURL, s.OllamaModel), nil
	case "gemini":
		if s.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key required for embeddings")
		}
		return NewGeminiProvider(s.GeminiAPIKey), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", s.Provider)
	}
}

// normalizeVector normalizes a vector to unit length (magnitude = 1).
// pgvector cosine distance assumes unit vectors.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
