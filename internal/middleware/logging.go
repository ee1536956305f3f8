package middleware

import (
	"log/slog"
	"time"

	"vibio/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// ContextMiddleware injects the request id from Fiber locals into the
// request context so the context-aware logger picks it up in deeper layers.
// The authenticated user id joins the context later, in AuthRequired.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, ok := c.Locals("requestid").(string); ok {
			c.SetUserContext(observability.WithCorrelationID(c.UserContext(), rid))
		}
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware logging each request via slog.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}
		if uid := observability.ExtractUserID(c.UserContext()); uid != 0 {
			fields = append(fields, slog.Uint64("user_id", uint64(uid)))
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.GlobalLogger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
