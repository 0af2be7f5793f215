package history

import (
	"sync"

	"ragchat-be/pkg/llm"
)

// Message is one remembered turn fragment with its cached token count.
type Message struct {
	Role       string `json:"role"`
	Text       string `json:"text"`
	TokenCount int    `json:"tokenCount"`
}

// ConversationMemory keeps the newest messages whose total token count fits
// maxTokens. Eviction drops whole messages, oldest first, and never drops
// the message just appended.
type ConversationMemory struct {
	mu        sync.Mutex
	messages  []Message
	total     int
	maxTokens int
	counter   TokenCounter
}

func NewConversationMemory(maxTokens int, counter TokenCounter) *ConversationMemory {
	return &ConversationMemory{
		maxTokens: maxTokens,
		counter:   counter,
	}
}

// Append adds a message and evicts synchronously until the budget holds.
func (m *ConversationMemory) Append(role, text string) Message {
	msg := Message{Role: role, Text: text, TokenCount: m.counter.Count(text)}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	m.total += msg.TokenCount

	for m.total > m.maxTokens && len(m.messages) > 1 {
		m.total -= m.messages[0].TokenCount
		m.messages[0] = Message{}
		m.messages = m.messages[1:]
	}
	return msg
}

// Messages returns a snapshot, oldest first.
func (m *ConversationMemory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *ConversationMemory) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

func (m *ConversationMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// ToLLM converts messages for a completion request.
func ToLLM(messages []Message) []llm.Message {
	out := make([]llm.Message, len(messages))
	for i, msg := range messages {
		out[i] = llm.Message{Role: msg.Role, Content: msg.Text}
	}
	return out
}
