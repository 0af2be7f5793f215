package service

import (
	"context"
	"encoding/json"

	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/rag/indexer"
	"ragchat-be/pkg/workerpool"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type DocumentIndexer interface {
	IndexFile(ctx context.Context, path string) (indexer.Outcome, error)
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	indexer    DocumentIndexer
	pool       *workerpool.Pool
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	indexer DocumentIndexer,
	pool *workerpool.Pool,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		indexer:    indexer,
		pool:       pool,
		logger:     logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage indexes the uploaded file once. Messages are always acked:
// failures are logged and the ledger makes a later re-upload safe.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.PublishDocumentUploadedMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		return
	}

	outcome, err := cs.indexFile(ctx, payload.Path)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to index uploaded document", map[string]interface{}{
			"path":  payload.Path,
			"error": err.Error(),
		})
		return
	}

	cs.logger.Info("CONSUMER", "Uploaded document processed", map[string]interface{}{
		"path":    payload.Path,
		"outcome": string(outcome),
	})
}

// indexFile hashes and ingests on the worker pool when there is one.
func (cs *consumerService) indexFile(ctx context.Context, path string) (indexer.Outcome, error) {
	if cs.pool == nil {
		return cs.indexer.IndexFile(ctx, path)
	}
	return workerpool.Run(ctx, cs.pool, func(ctx context.Context) (indexer.Outcome, error) {
		return cs.indexer.IndexFile(ctx, path)
	})
}
