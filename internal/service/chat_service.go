package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/pkg/llm"
	"ragchat-be/pkg/rag/augment"
	ragEvents "ragchat-be/pkg/rag/events"
	"ragchat-be/pkg/rag/history"
	"ragchat-be/pkg/rag/query"
	"ragchat-be/pkg/rag/session"
	"ragchat-be/pkg/rag/stream"
	"ragchat-be/pkg/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

var errConsumerGone = errors.New("stream consumer disconnected")

type IChatService interface {
	// Complete runs one turn and returns the whole reply. If the completion
	// fails after augmentation, the user message stays in memory.
	Complete(ctx context.Context, sessionId, message string) (*dto.ChatResponse, error)
	// StartStream validates synchronously, then runs the turn in the
	// background. The returned channel receives every token in order and
	// exactly one terminal event.
	StartStream(ctx context.Context, sessionId, message string) (*StreamHandle, error)
	History(ctx context.Context, sessionId string) *dto.ChatHistoryResponse
}

type Augmentor interface {
	Augment(ctx context.Context, q query.Query) (*augment.Result, error)
}

// StreamHandle is the acknowledgment of a streaming turn
type StreamHandle struct {
	SessionId string
	TurnId    string
	Channel   *stream.Channel
}

type chatService struct {
	sessions     *session.Manager
	augmentor    Augmentor
	llmProvider  llm.LLMProvider
	registry     *stream.Registry
	publisher    ragEvents.Publisher
	logger       logger.ILogger
	tracer       trace.Tracer
	systemPrompt string
}

func NewChatService(
	sessions *session.Manager,
	augmentor Augmentor,
	llmProvider llm.LLMProvider,
	registry *stream.Registry,
	publisher ragEvents.Publisher,
	logger logger.ILogger,
	systemPrompt string,
) IChatService {
	return &chatService{
		sessions:     sessions,
		augmentor:    augmentor,
		llmProvider:  llmProvider,
		registry:     registry,
		publisher:    publisher,
		logger:       logger,
		tracer:       otel.Tracer("ragchat-be/chat"),
		systemPrompt: strings.TrimSpace(systemPrompt),
	}
}

func validateMessage(op, message string) error {
	if strings.TrimSpace(message) == "" {
		return apperror.Validation(op, "Message cannot be empty")
	}
	return nil
}

func resolveSessionId(sessionId string) string {
	if sessionId = strings.TrimSpace(sessionId); sessionId != "" {
		return sessionId
	}
	return uuid.NewString()
}

func (s *chatService) Complete(ctx context.Context, sessionId, message string) (*dto.ChatResponse, error) {
	if err := validateMessage("chat.Complete", message); err != nil {
		return nil, err
	}
	sessionId = resolveSessionId(sessionId)
	turnId := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "chat.Complete", trace.WithAttributes(
		attribute.String("session.id", sessionId),
		attribute.String("turn.id", turnId),
	))
	defer span.End()

	sess, release, err := s.sessions.Acquire(ctx, sessionId)
	if err != nil {
		return nil, apperror.Processing("chat.Complete", "Request cancelled", err)
	}
	defer release()

	result, err := s.augment(ctx, sessionId, message, sess.Memory.Messages())
	if err != nil {
		s.fail(ctx, span, sessionId, turnId, false, err)
		return nil, augmentFailure("chat.Complete", err)
	}

	sess.Memory.Append(llm.RoleUser, result.Prompt)

	reply, err := s.complete(ctx, sess.Memory.Messages())
	if err != nil {
		s.fail(ctx, span, sessionId, turnId, false, err)
		return nil, apperror.Processing("chat.Complete", "Internal server error", err)
	}

	sess.Memory.Append(llm.RoleAssistant, reply)
	s.publisher.PublishChatCompleted(ctx, sessionId, turnId, false, OutcomeCompleted)

	return &dto.ChatResponse{
		SessionId: sessionId,
		Response:  reply,
		Mode:      result.Kind.String(),
	}, nil
}

func (s *chatService) StartStream(ctx context.Context, sessionId, message string) (*StreamHandle, error) {
	if err := validateMessage("chat.StartStream", message); err != nil {
		return nil, err
	}
	sessionId = resolveSessionId(sessionId)

	// Reserve before returning so turns run in the order they were accepted
	sess, turn := s.sessions.Reserve(sessionId)
	ch := s.registry.Open(sessionId)

	// The turn outlives the request that started it
	bg := context.WithoutCancel(ctx)
	go s.runStream(bg, ch, sess, turn, message)

	return &StreamHandle{
		SessionId: sessionId,
		TurnId:    ch.TurnID,
		Channel:   ch,
	}, nil
}

func (s *chatService) runStream(ctx context.Context, ch *stream.Channel, sess *store.Session, turn *store.Turn, message string) {
	sessionId, turnId := ch.SessionID, ch.TurnID
	defer turn.Release()

	ctx, span := s.tracer.Start(ctx, "chat.Stream", trace.WithAttributes(
		attribute.String("session.id", sessionId),
		attribute.String("turn.id", turnId),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("stream panic: %v", r)
			s.fail(ctx, span, sessionId, turnId, true, err)
			ch.Finish(stream.ErrorEvent(500, "Internal server error"))
		}
	}()

	if err := turn.Wait(ctx); err != nil {
		s.fail(ctx, span, sessionId, turnId, true, err)
		ch.Finish(stream.ErrorEvent(500, "Internal server error"))
		return
	}

	result, err := s.augment(ctx, sessionId, message, sess.Memory.Messages())
	if err != nil {
		s.fail(ctx, span, sessionId, turnId, true, err)
		err = augmentFailure("chat.Stream", err)
		ch.Finish(stream.ErrorEvent(apperror.StatusCode(err), apperror.MessageOf(err)))
		return
	}

	sess.Memory.Append(llm.RoleUser, result.Prompt)

	_, llmSpan := s.tracer.Start(ctx, "chat.completion.stream")
	delivered := 0
	reply, err := s.llmProvider.ChatStream(ctx, s.withSystemPrompt(sess.Memory.Messages()), func(token string) error {
		if !ch.Publish(stream.TokenEvent(token)) && ch.Closed() {
			return errConsumerGone
		}
		delivered++
		return nil
	})
	llmSpan.SetAttributes(attribute.Int("tokens.delivered", delivered))
	llmSpan.End()

	if err != nil {
		s.fail(ctx, span, sessionId, turnId, true, err)
		ch.Finish(stream.ErrorEvent(500, "Internal server error"))
		return
	}

	sess.Memory.Append(llm.RoleAssistant, reply)
	ch.Finish(stream.EndEvent())
	s.publisher.PublishChatCompleted(ctx, sessionId, turnId, true, OutcomeCompleted)

	s.logger.Info("CHAT", "Stream turn completed", map[string]interface{}{
		"session_id": sessionId,
		"turn_id":    turnId,
		"tokens":     delivered,
		"mode":       result.Kind.String(),
	})
}

func (s *chatService) History(ctx context.Context, sessionId string) *dto.ChatHistoryResponse {
	messages := s.sessions.History(sessionId)

	res := &dto.ChatHistoryResponse{
		SessionId: sessionId,
		Messages:  make([]dto.HistoryMessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		res.TokenCount += m.TokenCount
		res.Messages = append(res.Messages, dto.HistoryMessageResponse{
			Role:       m.Role,
			Text:       m.Text,
			TokenCount: m.TokenCount,
		})
	}
	return res
}

func (s *chatService) augment(ctx context.Context, sessionId, message string, snapshot []history.Message) (*augment.Result, error) {
	ctx, span := s.tracer.Start(ctx, "chat.augment")
	defer span.End()

	result, err := s.augmentor.Augment(ctx, query.Query{
		Text: message,
		Metadata: query.Metadata{
			SessionID: sessionId,
			History:   snapshot,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "augmentation failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.String("augment.mode", result.Kind.String()),
		attribute.Int("augment.contents", len(result.Contents)),
	)
	return result, nil
}

// augmentFailure keeps the retrieval message and status for both transports.
func augmentFailure(op string, err error) error {
	return apperror.Processing(op, apperror.MessageOf(err), err)
}

func (s *chatService) complete(ctx context.Context, messages []history.Message) (string, error) {
	ctx, span := s.tracer.Start(ctx, "chat.completion")
	defer span.End()

	reply, err := s.llmProvider.Chat(ctx, s.withSystemPrompt(messages))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return "", err
	}
	return reply, nil
}

func (s *chatService) withSystemPrompt(messages []history.Message) []llm.Message {
	converted := history.ToLLM(messages)
	if s.systemPrompt == "" {
		return converted
	}
	return append([]llm.Message{{Role: llm.RoleSystem, Content: s.systemPrompt}}, converted...)
}

func (s *chatService) fail(ctx context.Context, span trace.Span, sessionId, turnId string, streamed bool, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	s.logger.Error("CHAT", "Chat turn failed", map[string]interface{}{
		"session_id": sessionId,
		"turn_id":    turnId,
		"streamed":   streamed,
		"kind":       string(apperror.KindOf(err)),
		"error":      err.Error(),
	})
	s.publisher.PublishChatCompleted(ctx, sessionId, turnId, streamed, OutcomeFailed)
}
