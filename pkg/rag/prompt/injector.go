package prompt

import (
	"strings"

	"ragchat-be/pkg/store"
)

// NoRelevantDocuments replaces the context block when retrieval found nothing.
const NoRelevantDocuments = "No relevant documents found."

// Inject places the retrieved context before the user's text.
func Inject(userText string, contents []store.Document) string {
	var prompt strings.Builder

	prompt.WriteString("Context:\n")
	prompt.WriteString(ContextBlock(contents))
	prompt.WriteString("\n\nUser Question:\n")
	prompt.WriteString(userText)

	return prompt.String()
}

// ContextBlock joins retrieved texts with blank lines, or returns the fallback marker.
func ContextBlock(contents []store.Document) string {
	if len(contents) == 0 {
		return NoRelevantDocuments
	}
	texts := make([]string, len(contents))
	for i, c := range contents {
		texts[i] = c.Content
	}
	return strings.Join(texts, "\n\n")
}
