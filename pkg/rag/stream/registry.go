package stream

import (
	"sync"

	"github.com/google/uuid"
)

// Event is one message on a turn's stream. Exactly one event per turn has
// End set or a non-empty Error, and it is always the last.
type Event struct {
	Token  string `json:"token,omitempty"`
	End    bool   `json:"end,omitempty"`
	Error  string `json:"error,omitempty"`
	Status int    `json:"status,omitempty"`
}

func TokenEvent(token string) Event { return Event{Token: token} }

func EndEvent() Event { return Event{End: true} }

func ErrorEvent(status int, message string) Event {
	return Event{Error: message, Status: status}
}

func (e Event) Terminal() bool {
	return e.End || e.Error != ""
}

const bufferSize = 64

// Channel carries the events of a single turn. The producer publishes and
// finishes it; the consumer reads Events until it is closed, or calls Close
// to stop listening. Once closed, published events are dropped.
type Channel struct {
	SessionID string
	TurnID    string

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	finished bool

	onFinish func(*Channel)
}

func newChannel(sessionID string, onFinish func(*Channel)) *Channel {
	return &Channel{
		SessionID: sessionID,
		TurnID:    uuid.NewString(),
		events:    make(chan Event, bufferSize),
		done:      make(chan struct{}),
		onFinish:  onFinish,
	}
}

// Events is closed right after the terminal event.
func (c *Channel) Events() <-chan Event {
	return c.events
}

// Done is closed once the consumer has gone away.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Publish delivers a non-terminal event and reports whether it was delivered.
// Terminal events must go through Finish.
func (c *Channel) Publish(e Event) bool {
	if e.Terminal() {
		return c.Finish(e)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.finished {
		return false
	}
	return c.send(e)
}

// Finish publishes the terminal event. Only the first call has any effect;
// it reports whether this call was that one.
func (c *Channel) Finish(e Event) bool {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return false
	}
	c.finished = true
	c.send(e)
	close(c.events)
	c.mu.Unlock()

	if c.onFinish != nil {
		c.onFinish(c)
	}
	return true
}

// Close releases the consumer side. Idempotent.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Channel) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) send(e Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- e:
		return true
	case <-c.done:
		return false
	}
}

// Registry tracks the open turn channels of every session. Turns on one
// session each keep their own channel until they finish.
type Registry struct {
	mu       sync.Mutex
	channels map[string][]*Channel
}

func NewRegistry() *Registry {
	return &Registry{channels: make(map[string][]*Channel)}
}

// Open creates the channel for a new turn. Earlier turns of the session stay
// open and still get their own terminal event.
func (r *Registry) Open(sessionID string) *Channel {
	ch := newChannel(sessionID, r.release)

	r.mu.Lock()
	r.channels[sessionID] = append(r.channels[sessionID], ch)
	r.mu.Unlock()
	return ch
}

// Get returns the most recently opened channel of the session.
func (r *Registry) Get(sessionID string) (*Channel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	open := r.channels[sessionID]
	if len(open) == 0 {
		return nil, false
	}
	return open[len(open)-1], true
}

// Publish reports false when the session has no live channel.
func (r *Registry) Publish(sessionID string, e Event) bool {
	ch, ok := r.Get(sessionID)
	if !ok {
		return false
	}
	return ch.Publish(e)
}

// Close releases the consumer side of every open channel of the session. Idempotent.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	open := r.channels[sessionID]
	delete(r.channels, sessionID)
	r.mu.Unlock()

	for _, ch := range open {
		ch.Close()
	}
}

// Len counts sessions with at least one open turn.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.channels)
}

// release forgets ch once its turn is over.
func (r *Registry) release(ch *Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	open := r.channels[ch.SessionID]
	for i, c := range open {
		if c == ch {
			open = append(open[:i], open[i+1:]...)
			break
		}
	}
	if len(open) == 0 {
		delete(r.channels, ch.SessionID)
		return
	}
	r.channels[ch.SessionID] = open
}
