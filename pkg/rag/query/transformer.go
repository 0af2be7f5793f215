package query

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ragchat-be/internal/apperror"
	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/rag/history"
)

// Metadata travels with a query through the retrieval pipeline.
type Metadata struct {
	SessionID string
	History   []history.Message
}

type Query struct {
	Text     string
	Metadata Metadata
}

// Transformer compresses a query against the conversation, then expands the
// result into several rephrasings. The output is never empty for a non-empty input.
type Transformer struct {
	llm        llm.LLMProvider
	expansions int
}

func NewTransformer(provider llm.LLMProvider, expansions int) *Transformer {
	if expansions <= 0 {
		expansions = 3
	}
	return &Transformer{llm: provider, expansions: expansions}
}

func (t *Transformer) Transform(ctx context.Context, q Query) ([]Query, error) {
	// 1. Compress against the conversation
	compressed, err := t.compress(ctx, q)
	if err != nil {
		return nil, apperror.Retrieval("query.Transform", "Query compression failed", err)
	}

	// 2. Expand every compressed query, order preserved
	var out []Query
	for _, c := range compressed {
		expanded, err := t.expand(ctx, c)
		if err != nil {
			return nil, apperror.Retrieval("query.Transform", "Query expansion failed", err)
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (t *Transformer) compress(ctx context.Context, q Query) ([]Query, error) {
	if len(q.Metadata.History) == 0 {
		return []Query{q}, nil
	}

	answer, err := t.llm.Generate(ctx, buildCompressPrompt(q))
	if err != nil {
		return nil, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return []Query{q}, nil
	}
	return []Query{{Text: answer, Metadata: q.Metadata}}, nil
}

func (t *Transformer) expand(ctx context.Context, q Query) ([]Query, error) {
	answer, err := t.llm.Generate(ctx, buildExpandPrompt(q.Text, t.expansions))
	if err != nil {
		return nil, err
	}

	lines := parseLines(answer)
	if len(lines) == 0 {
		return []Query{q}, nil
	}
	if len(lines) > t.expansions {
		lines = lines[:t.expansions]
	}

	out := make([]Query, len(lines))
	for i, line := range lines {
		out[i] = Query{Text: line, Metadata: q.Metadata}
	}
	return out, nil
}

func buildCompressPrompt(q Query) string {
	var prompt strings.Builder
	prompt.WriteString("Read the conversation between the User and the AI, then the User's new query.\n")
	prompt.WriteString("Rewrite the new query so it is concise and fully self-contained, carrying over any names, terms or context from the conversation that it depends on.\n\n")
	prompt.WriteString("Conversation:\n")
	for _, msg := range q.Metadata.History {
		role := "User"
		if msg.Role == llm.RoleAssistant {
			role = "AI"
		}
		prompt.WriteString(role)
		prompt.WriteString(": ")
		prompt.WriteString(msg.Text)
		prompt.WriteString("\n")
	}
	prompt.WriteString("\nUser query: ")
	prompt.WriteString(q.Text)
	prompt.WriteString("\n\nReply with the rewritten query only, without any prefix or explanation.")
	return prompt.String()
}

func buildExpandPrompt(text string, n int) string {
	var prompt strings.Builder
	prompt.WriteString(fmt.Sprintf("Write %d different versions of the user query below.\n", n))
	prompt.WriteString("Each version must keep the original meaning but use other words or sentence structure; they will be used to search for relevant documents.\n")
	prompt.WriteString("Put each version on its own line with no numbering, bullets or other formatting.\n\n")
	prompt.WriteString("User query: ")
	prompt.WriteString(text)
	return prompt.String()
}

var listMarker = regexp.MustCompile(`^(\d+[.)]|[-*•])\s+`)

func parseLines(answer string) []string {
	var lines []string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(strings.TrimSpace(line), ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
