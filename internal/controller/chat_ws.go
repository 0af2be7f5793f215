package controller

import (
	"context"
	"encoding/json"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/dto"
	internalWS "ragchat-be/internal/websocket"
	"ragchat-be/pkg/rag/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func (c *chatController) upgrade(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	ctx.Locals("sessionId", ctx.Query("sessionId"))
	return ctx.Next()
}

// serveWs streams chat turns over one connection. Every text frame is a chat
// request; the reply is an ack frame followed by the turn's events.
func (c *chatController) serveWs(conn *websocket.Conn) {
	sessionId, _ := conn.Locals("sessionId").(string)
	internalWS.ServeWs(c.hub, conn, sessionId, c.handleFrame)
}

func (c *chatController) handleFrame(client *internalWS.Client, data []byte) {
	var req dto.ChatRequest
	if err := json.Unmarshal(data, &req); err != nil {
		client.SendJSON(stream.ErrorEvent(400, "Invalid request body"))
		return
	}
	if req.SessionId == "" {
		req.SessionId = client.SessionID
	}

	handle, err := c.service.StartStream(context.Background(), req.SessionId, req.Message)
	if err != nil {
		client.SendJSON(stream.ErrorEvent(apperror.StatusCode(err), apperror.MessageOf(err)))
		return
	}
	client.SessionID = handle.SessionId

	client.SendJSON(dto.StreamAckResponse{
		Status:    dto.StreamStatusStarted,
		SessionId: handle.SessionId,
		TurnId:    handle.TurnId,
	})

	go forward(client, handle.Channel)
}

func forward(client *internalWS.Client, ch *stream.Channel) {
	defer ch.Close()
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok || !client.SendJSON(ev) {
				return
			}
		case <-client.Done():
			return
		}
	}
}
