package store

import (
	"context"
	"sync"
	"time"

	"ragchat-be/pkg/rag/history"
)

// Document is one piece of retrieved content with its relevance score in [0, 1].
type Document struct {
	ID       string                 `json:"id"`
	Source   string                 `json:"source"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// Session represents the active chat session state in memory
type Session struct {
	ID        string `json:"id"`
	Memory    *history.ConversationMemory
	CreatedAt time.Time `json:"created_at"`

	// turns run one at a time, in reservation order
	mu    sync.Mutex
	busy  bool
	queue []*Turn
}

func NewSession(id string, memory *history.ConversationMemory) *Session {
	return &Session{
		ID:        id,
		Memory:    memory,
		CreatedAt: time.Now(),
	}
}

// Turn is a reserved place in a session's turn queue.
type Turn struct {
	session *Session
	ready   chan struct{}
	once    sync.Once
}

// ReserveTurn queues a turn without blocking. Turns are granted in the
// order they were reserved.
func (s *Session) ReserveTurn() *Turn {
	t := &Turn{session: s, ready: make(chan struct{})}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.busy {
		s.busy = true
		close(t.ready)
	} else {
		s.queue = append(s.queue, t)
	}
	return t
}

// Wait blocks until the turn is granted. If ctx ends first the reservation
// is given up.
func (t *Turn) Wait(ctx context.Context) error {
	select {
	case <-t.ready:
		return nil
	default:
	}

	select {
	case <-t.ready:
		return nil
	case <-ctx.Done():
		t.Release()
		return ctx.Err()
	}
}

// Release hands the session to the next reserved turn, or drops a turn that
// was never granted. Safe to call more than once.
func (t *Turn) Release() {
	t.once.Do(func() {
		s := t.session
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, queued := range s.queue {
			if queued == t {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				return
			}
		}

		if len(s.queue) > 0 {
			next := s.queue[0]
			s.queue = s.queue[1:]
			close(next.ready)
			return
		}
		s.busy = false
	})
}

// AcquireTurn blocks until no other turn runs on this session or ctx ends.
// The returned release func is safe to call more than once.
func (s *Session) AcquireTurn(ctx context.Context) (func(), error) {
	t := s.ReserveTurn()
	if err := t.Wait(ctx); err != nil {
		return nil, err
	}
	return t.Release, nil
}
