package logger

import (
	"context"
	"log/slog"

	"github.com/phrazzld/threadcraft-api/internal/redact"
)

// errorKeys are attribute keys whose string values are redacted.
var errorKeys = map[string]bool{
	"error":          true,
	"rollback_error": true,
	"original_error": true,
}

// RedactingHandler wraps a slog.Handler and redacts error values before they
// are written. Provider and database errors can echo keys, connection strings
// or inline media back to the caller.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler.
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	return &RedactingHandler{handler: handler}
}

// Enabled implements the slog.Handler interface.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements the slog.Handler interface.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup implements the slog.Handler interface.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

// Handle implements the slog.Handler interface.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

func redactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, redact.Error(err))
		}
	case slog.KindString:
		if errorKeys[a.Key] {
			return slog.String(a.Key, redact.String(v.String()))
		}
	case slog.KindGroup:
		attrs := v.Group()
		redacted := make([]any, len(attrs))
		for i, ga := range attrs {
			redacted[i] = redactAttr(ga)
		}
		return slog.Group(a.Key, redacted...)
	}
	return a
}
