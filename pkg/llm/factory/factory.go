package factory

import (
	"fmt"

	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/llm/ollama"
	"ragchat-be/pkg/llm/openai"
)

// Settings carries what every provider needs; unused fields are ignored.
type Settings struct {
	Provider   string
	APIKey     string
	BaseURL    string
	MaxRetries int
	Defaults   llm.Options
}

func NewLLMProvider(s Settings) (llm.LLMProvider, error) {
	switch s.Provider {
	case "openai":
		if s.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		return openai.NewOpenAIProvider(s.APIKey, s.BaseURL, s.Defaults, s.MaxRetries), nil
	case "ollama":
		baseURL := s.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, s.Defaults), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", s.Provider)
	}
}
