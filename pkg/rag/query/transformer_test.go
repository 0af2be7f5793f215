package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragchat-be/internal/apperror"
	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/rag/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLLM answers Generate calls by prompt kind.
type scriptedLLM struct {
	compress func(prompt string) (string, error)
	expand   func(prompt string) (string, error)
	calls    []string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) ChatStream(ctx context.Context, history []llm.Message, onToken llm.TokenHandler, opts ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	if strings.HasPrefix(prompt, "Read the conversation") {
		s.calls = append(s.calls, "compress")
		return s.compress(prompt)
	}
	s.calls = append(s.calls, "expand")
	return s.expand(prompt)
}

func texts(qs []Query) []string {
	out := make([]string, len(qs))
	for i, q := range qs {
		out[i] = q.Text
	}
	return out
}

func TestTransformWithoutHistorySkipsCompression(t *testing.T) {
	fake := &scriptedLLM{
		expand: func(prompt string) (string, error) {
			assert.Contains(t, prompt, "User query: What is Go?")
			return "What is the Go language?\n2. Explain Go\n- Describe golang\n", nil
		},
	}

	out, err := NewTransformer(fake, 3).Transform(context.Background(), Query{Text: "What is Go?"})
	require.NoError(t, err)
	assert.Equal(t, []string{"What is the Go language?", "Explain Go", "Describe golang"}, texts(out))
	assert.Equal(t, []string{"expand"}, fake.calls)
}

func TestTransformCompressesWithHistory(t *testing.T) {
	fake := &scriptedLLM{
		compress: func(prompt string) (string, error) {
			assert.Contains(t, prompt, "User: Tell me about Go")
			assert.Contains(t, prompt, "AI: Go is a language")
			return "Who created the Go language?", nil
		},
		expand: func(prompt string) (string, error) {
			assert.Contains(t, prompt, "Who created the Go language?")
			return "a\nb\nc\nd", nil
		},
	}

	q := Query{Text: "Who made it?", Metadata: Metadata{SessionID: "s1", History: []history.Message{
		{Role: llm.RoleUser, Text: "Tell me about Go"},
		{Role: llm.RoleAssistant, Text: "Go is a language"},
	}}}
	out, err := NewTransformer(fake, 3).Transform(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, texts(out))
	assert.Equal(t, "s1", out[0].Metadata.SessionID)
	assert.Equal(t, []string{"compress", "expand"}, fake.calls)
}

func TestTransformBlankAnswersFallBackToInput(t *testing.T) {
	fake := &scriptedLLM{
		compress: func(string) (string, error) { return "   ", nil },
		expand:   func(string) (string, error) { return "\n\n", nil },
	}
	q := Query{Text: "Hello", Metadata: Metadata{History: []history.Message{{Role: llm.RoleUser, Text: "hi"}}}}

	out, err := NewTransformer(fake, 3).Transform(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello"}, texts(out))
}

func TestTransformFailures(t *testing.T) {
	boom := errors.New("engine down")

	t.Run("compression", func(t *testing.T) {
		fake := &scriptedLLM{compress: func(string) (string, error) { return "", boom }}
		q := Query{Text: "x", Metadata: Metadata{History: []history.Message{{Role: llm.RoleUser, Text: "hi"}}}}
		out, err := NewTransformer(fake, 3).Transform(context.Background(), q)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, apperror.ErrRetrieval)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("expansion", func(t *testing.T) {
		fake := &scriptedLLM{expand: func(string) (string, error) { return "", boom }}
		out, err := NewTransformer(fake, 3).Transform(context.Background(), Query{Text: "x"})
		assert.Nil(t, out)
		assert.ErrorIs(t, err, apperror.ErrRetrieval)
	})
}
