package events

import (
	"context"
	"errors"
	"testing"

	"ragchat-be/internal/pkg/logger"
	pkgEvents "ragchat-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBus struct {
	events []pkgEvents.Event
	err    error
}

func (b *recordingBus) Publish(ctx context.Context, event pkgEvents.Event) error {
	b.events = append(b.events, event)
	return b.err
}

func TestPublishDocumentIndexed(t *testing.T) {
	bus := &recordingBus{}
	NewBusPublisher(bus, logger.NewNopLogger()).PublishDocumentIndexed(context.Background(), "abc", "documents/a.txt", 3)

	require.Len(t, bus.events, 1)
	assert.Equal(t, pkgEvents.TypeDocumentIndexed, bus.events[0].EventType())
	assert.Equal(t, 3, bus.events[0].Payload()["chunks"])
}

func TestPublishChatCompletedIgnoresBusErrors(t *testing.T) {
	bus := &recordingBus{err: errors.New("nats down")}
	p := NewBusPublisher(bus, logger.NewNopLogger())

	assert.NotPanics(t, func() {
		p.PublishChatCompleted(context.Background(), "s1", "t1", true, "completed")
	})
	assert.Len(t, bus.events, 1)
}

func TestNilBusIsNoop(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBusPublisher(nil, logger.NewNopLogger()).PublishDocumentIndexed(context.Background(), "h", "p", 1)
	})
}
