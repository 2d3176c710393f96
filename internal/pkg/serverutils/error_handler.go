package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"ai-chat-be/internal/pkg/apperrors"
)

// ErrorHandlerMiddleware converts errors bubbling out of handlers into the
// standard response envelope. AppError codes decide the HTTP status; the
// wrapped cause never leaks to the client.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
		}

		status := apperrors.HTTPStatus(err)
		return ctx.Status(status).JSON(ErrorResponse(status, apperrors.UserMessage(err)))
	}
}
