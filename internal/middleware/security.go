package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/arzan03/natours/internal/apperror"
	"github.com/arzan03/natours/internal/config"
)

// SecurityHeaders sets the standard security response headers.
func SecurityHeaders() fiber.Handler {
	return helmet.New()
}

// CORS allows cross-origin API calls.
func CORS() fiber.Handler {
	return cors.New()
}

// RateLimiter bounds the requests of each client IP per window. store may be
// nil to keep counters in memory.
func RateLimiter(cfg config.RateLimitConfig, store fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Storage:    store,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return apperror.New(fiber.StatusTooManyRequests, "Too many requests from this IP, please try again in an hour!")
		},
	})
}

// BodyLimit rejects non-multipart request bodies larger than limit bytes.
// Multipart uploads are bounded by the server-wide limit instead.
func BodyLimit(limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if len(c.Body()) > limit && !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
			return fiber.ErrRequestEntityTooLarge
		}
		return c.Next()
	}
}
