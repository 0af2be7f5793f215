package serverutils

import (
	"errors"

	"ragchat-be/internal/apperror"
	"ragchat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware renders errors returned by later handlers
func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return renderError(ctx, log, err)
	}
}

// ErrorHandler is the fiber.Config ErrorHandler for errors that escape the middleware
func ErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		return renderError(ctx, log, err)
	}
}

func renderError(ctx *fiber.Ctx, log logger.ILogger, err error) error {
	status := apperror.StatusCode(err)
	message := apperror.MessageOf(err)

	var fiberErr *fiber.Error
	if apperror.KindOf(err) == "" && errors.As(err, &fiberErr) {
		status = fiberErr.Code
		message = fiberErr.Message
	}

	if status >= fiber.StatusInternalServerError {
		log.Error("HTTP", "Request failed", map[string]interface{}{
			"method": ctx.Method(),
			"path":   ctx.Path(),
			"status": status,
			"error":  err.Error(),
		})
	}

	return ctx.Status(status).JSON(ErrorResponse{
		Status:  status,
		Message: message,
	})
}
