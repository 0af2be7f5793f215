package session

import (
	"context"

	"ragchat-be/internal/repository/memory"
	"ragchat-be/pkg/rag/history"
	"ragchat-be/pkg/store"
)

// Manager owns per-session conversation memory. Each session's memory has
// its own lock, so distinct sessions never block each other.
type Manager struct {
	sessionRepo *memory.SessionRepository
	maxTokens   int
	counter     history.TokenCounter
}

// NewManager creates a new session manager
func NewManager(sessionRepo *memory.SessionRepository, maxTokens int, counter history.TokenCounter) *Manager {
	return &Manager{
		sessionRepo: sessionRepo,
		maxTokens:   maxTokens,
		counter:     counter,
	}
}

// GetOrCreate retrieves or lazily creates the session
func (m *Manager) GetOrCreate(sessionID string) *store.Session {
	return m.sessionRepo.GetOrCreate(sessionID, func() *store.Session {
		return store.NewSession(sessionID, history.NewConversationMemory(m.maxTokens, m.counter))
	})
}

func (m *Manager) Append(sessionID, role, text string) history.Message {
	return m.GetOrCreate(sessionID).Memory.Append(role, text)
}

// History is empty for unknown sessions and does not create them.
func (m *Manager) History(sessionID string) []history.Message {
	session, found := m.sessionRepo.Get(sessionID)
	if !found {
		return []history.Message{}
	}
	return session.Memory.Messages()
}

// Acquire serializes whole turns on one session.
func (m *Manager) Acquire(ctx context.Context, sessionID string) (*store.Session, func(), error) {
	session := m.GetOrCreate(sessionID)
	release, err := session.AcquireTurn(ctx)
	if err != nil {
		return nil, nil, err
	}
	return session, release, nil
}

// Reserve queues a turn on the session without waiting for it. Callers
// must Wait on the turn before touching memory and Release it afterwards.
func (m *Manager) Reserve(sessionID string) (*store.Session, *store.Turn) {
	session := m.GetOrCreate(sessionID)
	return session, session.ReserveTurn()
}
