package llm

import (
	"context"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Model            string // Override default model
	Temperature      *float64
	TopP             *float64
	PresencePenalty  *float64
	FrequencyPenalty *float64
	MaxTokens        int
	Stop             []string
	ResponseFormat   string
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = &temp
	}
}

func WithTopP(topP float64) Option {
	return func(o *Options) {
		o.TopP = &topP
	}
}

func WithPenalties(presence, frequency float64) Option {
	return func(o *Options) {
		o.PresencePenalty = &presence
		o.FrequencyPenalty = &frequency
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.MaxTokens = maxTokens
	}
}

func WithStop(stop ...string) Option {
	return func(o *Options) {
		o.Stop = stop
	}
}

func WithResponseFormat(format string) Option {
	return func(o *Options) {
		o.ResponseFormat = format
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

// Apply folds opts over the provider defaults.
func Apply(defaults Options, opts ...Option) Options {
	options := defaults
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// TokenHandler receives streamed tokens in generation order. Returning an
// error stops delivery to the handler but not the provider contract: the
// provider still returns exactly once.
type TokenHandler func(token string) error

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// ChatStream streams tokens of the response to onToken and returns the
	// aggregated response once the model finishes, or the error that ended it.
	ChatStream(ctx context.Context, history []Message, onToken TokenHandler, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}
