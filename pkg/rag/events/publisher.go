package events

import (
	"context"
	"time"

	"ragchat-be/internal/pkg/logger"
	pkgEvents "ragchat-be/pkg/events"
)

// Publisher emits the chat service's domain events
type Publisher interface {
	PublishDocumentIndexed(ctx context.Context, contentHash, path string, chunks int)
	PublishChatCompleted(ctx context.Context, sessionID, turnID string, streamed bool, outcome string)
}

// BusPublisher implements Publisher on an event bus. A nil bus disables publishing.
type BusPublisher struct {
	bus    pkgEvents.Bus
	logger logger.ILogger
}

func NewBusPublisher(bus pkgEvents.Bus, logger logger.ILogger) *BusPublisher {
	return &BusPublisher{
		bus:    bus,
		logger: logger,
	}
}

// PublishDocumentIndexed emits DOCUMENT_INDEXED once a fingerprint's embeddings are stored
func (p *BusPublisher) PublishDocumentIndexed(ctx context.Context, contentHash, path string, chunks int) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.TypeDocumentIndexed,
		Data: map[string]interface{}{
			"content_hash": contentHash,
			"path":         path,
			"chunks":       chunks,
			"entity_type":  "document",
			"entity_id":    contentHash,
		},
		OccurredAt: time.Now(),
	})
}

// PublishChatCompleted emits CHAT_COMPLETED at the end of every turn
func (p *BusPublisher) PublishChatCompleted(ctx context.Context, sessionID, turnID string, streamed bool, outcome string) {
	p.publish(ctx, pkgEvents.BaseEvent{
		Type: pkgEvents.TypeChatCompleted,
		Data: map[string]interface{}{
			"session_id":  sessionID,
			"turn_id":     turnID,
			"streamed":    streamed,
			"outcome":     outcome,
			"entity_type": "session",
			"entity_id":   sessionID,
		},
		OccurredAt: time.Now(),
	})
}

func (p *BusPublisher) publish(ctx context.Context, evt pkgEvents.BaseEvent) {
	if p == nil || p.bus == nil {
		return
	}
	if err := p.bus.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+evt.Type+" event", map[string]interface{}{"error": err.Error()})
	}
}
