package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/threadcraft-api/internal/api/shared"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.NewTestLogger()

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewTraceMiddleware(log)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.NotEmpty(t, traceID)
		assert.Equal(t, traceID, w.Header().Get(shared.TraceIDHeader))

		entries, err := buf.GetLogEntries()
		require.NoError(t, err)
		require.NotEmpty(t, entries)
		assert.Equal(t, traceID, entries[len(entries)-1]["trace_id"])
	})

	t.Run("reuses client id", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(shared.TraceIDHeader, "client-trace-0001")
		w := httptest.NewRecorder()

		NewTraceMiddleware(log)(next).ServeHTTP(w, r)

		assert.Equal(t, "client-trace-0001", traceID)
		assert.Equal(t, "client-trace-0001", w.Header().Get(shared.TraceIDHeader))
	})
}
