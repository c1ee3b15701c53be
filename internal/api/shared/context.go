package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
)

// ContextKey is the type of request-scoped values set by this package.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries the trace ID on requests and responses.
	TraceIDHeader = "X-Trace-ID"

	// TraceIDLength is the number of random bytes in a generated trace ID.
	TraceIDLength = 16
)

// validTraceID accepts client-supplied IDs that are safe to log and echo.
var validTraceID = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// WithTraceID returns a context carrying traceID. An empty or malformed
// traceID is replaced by a fresh one.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	if !validTraceID.MatchString(traceID) {
		traceID = NewTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, "")
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// NewTraceID returns 32 random hex characters.
func NewTraceID() string {
	b := make([]byte, TraceIDLength)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
