// Package observability provides logging and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(handler)}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	CorrelationID LogContextKey = "correlation_id"
	UserID        LogContextKey = "user_id"
)

// WithCorrelationID returns a new context with the given correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationID, id)
}

// ExtractCorrelationID retrieves the correlation ID from the context.
func ExtractCorrelationID(ctx context.Context) string {
	if id := ctx.Value(CorrelationID); id != nil {
		return id.(string)
	}
	return ""
}

// WithUserID returns a new context carrying the authenticated user id.
func WithUserID(ctx context.Context, id uint) context.Context {
	return context.WithValue(ctx, UserID, id)
}

// ExtractUserID retrieves the authenticated user id from the context, or 0
// when the request is unauthenticated.
func ExtractUserID(ctx context.Context) uint {
	if id, ok := ctx.Value(UserID).(uint); ok {
		return id
	}
	return 0
}

// GatewayLogger provides structured logging for outbound API requests.
type GatewayLogger struct {
	logger *Logger
}

// NewGatewayLogger creates a new GatewayLogger.
func NewGatewayLogger() *GatewayLogger {
	return &GatewayLogger{logger: GlobalLogger}
}

// LogRequest logs an outbound request about to be issued.
func (l *GatewayLogger) LogRequest(ctx context.Context, method, path string) {
	l.logger.InfoContext(ctx, "gateway request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogResponse logs a settled request with its HTTP status.
func (l *GatewayLogger) LogResponse(ctx context.Context, method, path string, status int) {
	l.logger.InfoContext(ctx, "gateway response",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogError logs a transport-level request failure.
func (l *GatewayLogger) LogError(ctx context.Context, method, path string, err error) {
	l.logger.ErrorContext(ctx, "gateway error",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	)
}

// LogSyncStart logs the start of a state synchronization operation.
func LogSyncStart(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "sync_start"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "sync operation started", attrs...)
}

// LogSyncEnd logs the completion of a state synchronization operation.
func LogSyncEnd(ctx context.Context, operation string, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "sync_end"),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.InfoContext(ctx, "sync operation completed", attrs...)
}

// LogSyncError logs a failed state synchronization operation.
func LogSyncError(ctx context.Context, operation string, err error, fields map[string]interface{}) {
	attrs := []any{
		slog.String("operation", operation),
		slog.String("type", "sync_error"),
		slog.String("error", err.Error()),
		slog.String("correlation_id", ExtractCorrelationID(ctx)),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	GlobalLogger.ErrorContext(ctx, "sync operation failed", attrs...)
}
