package controller

import (
	"bufio"
	"encoding/json"
	"fmt"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/dto"
	"ragchat-be/internal/pkg/logger"
	"ragchat-be/internal/pkg/serverutils"
	"ragchat-be/internal/service"
	internalWS "ragchat-be/internal/websocket"
	"ragchat-be/pkg/rag/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/valyala/fasthttp"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router, middleware ...fiber.Handler)
	Chat(ctx *fiber.Ctx) error
	Stream(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	service service.IChatService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewChatController(service service.IChatService, hub *internalWS.Hub, logger logger.ILogger) IChatController {
	return &chatController{
		service: service,
		hub:     hub,
		logger:  logger,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router, middleware ...fiber.Handler) {
	h := r.Group("/chat", middleware...)
	h.Post("", c.Chat)
	h.Post("/stream", c.Stream)
	h.Get("/ws", c.upgrade, websocket.New(c.serveWs))
	h.Get("/:sessionId/history", c.History)
}

func parseChatRequest(ctx *fiber.Ctx) (*dto.ChatRequest, error) {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return nil, apperror.Validation("chat.parse", "Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (c *chatController) Chat(ctx *fiber.Ctx) error {
	req, err := parseChatRequest(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.Complete(ctx.UserContext(), req.SessionId, req.Message)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

// Stream answers with server-sent events: one "data:" line per token, then
// exactly one end or error event.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	req, err := parseChatRequest(ctx)
	if err != nil {
		return err
	}

	handle, err := c.service.StartStream(ctx.UserContext(), req.SessionId, req.Message)
	if err != nil {
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Session-Id", handle.SessionId)
	ctx.Set("X-Turn-Id", handle.TurnId)

	ch := handle.Channel
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer ch.Close()
		for ev := range ch.Events() {
			if err := writeEvent(w, ev); err != nil {
				c.logger.Info("CHAT", "Stream consumer disconnected", map[string]interface{}{
					"session_id": handle.SessionId,
					"turn_id":    handle.TurnId,
				})
				return
			}
		}
	}))

	return nil
}

func writeEvent(w *bufio.Writer, ev stream.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")
	if sessionId == "" {
		return apperror.Validation("chat.History", "Session id is required")
	}

	res := c.service.History(ctx.UserContext(), sessionId)
	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}
