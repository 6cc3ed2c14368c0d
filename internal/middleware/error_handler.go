package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arzan03/natours/internal/apperror"
)

// ErrorHandler renders every error as the JSON envelope. In development the
// raw error and its stack are included; in production only operational
// errors show their message.
func ErrorHandler(development bool, logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := apperror.Translate(err)

		if !appErr.Operational {
			logger.Error("unhandled error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if development {
			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"status":  appErr.Status(),
				"error":   err.Error(),
				"message": appErr.Message,
				"stack":   fmt.Sprintf("%+v", appErr.Cause()),
			})
		}

		if appErr.Operational {
			return c.Status(appErr.StatusCode).JSON(fiber.Map{
				"status":  appErr.Status(),
				"message": appErr.Message,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": apperror.GenericMessage,
		})
	}
}

// NotFound is the catch-all for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return apperror.NotFound(fmt.Sprintf("Can't find %s on this server!", c.OriginalURL()))
}
