package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/events"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/mocks"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/memory"
	"github.com/phrazzld/threadcraft-api/internal/service"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/stretchr/testify/require"
)

const testUserID = "user_api"

type apiFixture struct {
	users    *memory.UserStore
	text     *mocks.TextProvider
	image    *mocks.ImageProvider
	sessions *orchestrator.Sessions
	hub      *Hub
	router   chi.Router
}

// newAPIFixture wires the handlers over memory stores. A negative balance
// leaves the account uncreated.
func newAPIFixture(t *testing.T, balance int) *apiFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := memory.NewUserStore(log)
	entries := memory.NewHistoryStore(users, log)
	if balance >= 0 {
		_, err := users.Upsert(context.Background(), &domain.User{ID: testUserID, Points: balance})
		require.NoError(t, err)
	}

	f := &apiFixture{
		users: users,
		text:  &mocks.TextProvider{},
		image: &mocks.ImageProvider{},
		hub:   NewHub(log),
	}

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(f.hub)

	sessions, err := orchestrator.NewSessions(orchestrator.Dependencies{
		Gate:            auth.ContextGate{},
		Ledger:          service.NewPointsLedger(users, nil, domain.DefaultStartingBalance, log),
		History:         service.NewHistoryService(entries, 0, log),
		Providers:       generation.Providers{Name: "fake", Text: f.text, Image: f.image},
		Builder:         generation.NewRequestBuilder(log),
		Events:          emitter,
		NotificationTTL: time.Minute,
		Logger:          log,
	}, 0)
	require.NoError(t, err)
	t.Cleanup(sessions.Close)
	f.sessions = sessions

	generations := NewGenerationHandler(sessions, log)
	attachments := NewAttachmentHandler(sessions, log)
	history := NewHistoryHandler(sessions, log)
	stream := NewStreamHandler(sessions, f.hub, log)

	r := chi.NewRouter()
	r.Use(withTestIdentity)
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", history.Me)
		r.Get("/session", generations.GetSession)
		r.Put("/session/content-type", generations.SelectContentType)
		r.Post("/generations", generations.Generate)
		r.Post("/attachments", attachments.Upload)
		r.Delete("/attachments/{index}", attachments.Remove)
		r.Get("/history", history.List)
		r.Post("/history/{id}/select", history.Select)
		r.Get("/notifications/ws", stream.Stream)
	})
	f.router = r
	return f
}

// withTestIdentity authenticates every request that carries X-Test-User.
func withTestIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get("X-Test-User"); id != "" {
			r = r.WithContext(auth.WithIdentity(r.Context(), auth.Identity{
				UserID: id,
				Email:  "writer@example.com",
				Name:   "Writer",
			}))
		}
		next.ServeHTTP(w, r)
	})
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", testUserID)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (f *apiFixture) balance(t *testing.T) int {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), testUserID)
	require.NoError(t, err)
	return user.Points
}
