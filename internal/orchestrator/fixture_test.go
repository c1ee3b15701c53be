package orchestrator_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

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

const testUserID = "user_2abc"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authedContext() context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		UserID: testUserID,
		Email:  "writer@example.com",
		Name:   "Writer",
	})
}

// recorder captures emitted events in order.
type recorder struct {
	mu      sync.Mutex
	events  []*events.Event
	onEvent func(*events.Event)
}

func (r *recorder) HandleEvent(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	hook := r.onEvent
	r.mu.Unlock()
	if hook != nil {
		hook(event)
	}
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) last(t *testing.T, eventType string, v any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == eventType {
			require.NoError(t, r.events[i].UnmarshalPayload(v))
			return
		}
	}
	t.Fatalf("no %s event recorded", eventType)
}

// failingLedger fails debits while delegating everything else.
type failingLedger struct {
	service.PointsLedger
	debitErr   error
	reconciled int
}

func (l *failingLedger) Debit(context.Context, string, int) (domain.PointsTransaction, error) {
	return domain.PointsTransaction{}, l.debitErr
}

func (l *failingLedger) Reconcile(ctx context.Context, userID string) (int, error) {
	l.reconciled++
	return l.PointsLedger.Reconcile(ctx, userID)
}

// failingHistory fails appends while delegating reads.
type failingHistory struct {
	service.HistoryService
	appendErr error
}

func (h *failingHistory) Append(context.Context, string, *domain.GeneratedContent) (*domain.HistoryEntry, error) {
	return nil, h.appendErr
}

type fakeArchiver struct {
	url   string
	err   error
	calls int
}

func (a *fakeArchiver) Archive(context.Context, string, *domain.InlineMedia) (string, error) {
	a.calls++
	return a.url, a.err
}

type fixture struct {
	users    *memory.UserStore
	ledger   *service.PointsLedgerImpl
	history  *service.HistoryServiceImpl
	text     *mocks.TextProvider
	image    *mocks.ImageProvider
	recorder *recorder
	deps     orchestrator.Dependencies
	session  *orchestrator.Session
}

// newFixture builds a session over memory stores. A negative balance leaves
// the account uncreated.
func newFixture(t *testing.T, balance int, configure ...func(*orchestrator.Dependencies)) *fixture {
	t.Helper()

	log := discardLogger()
	users := memory.NewUserStore(log)
	entries := memory.NewHistoryStore(users, log)

	f := &fixture{
		users:    users,
		ledger:   service.NewPointsLedger(users, nil, domain.DefaultStartingBalance, log),
		history:  service.NewHistoryService(entries, 0, log),
		text:     &mocks.TextProvider{},
		image:    &mocks.ImageProvider{},
		recorder: &recorder{},
	}

	if balance >= 0 {
		_, err := users.Upsert(context.Background(), &domain.User{ID: testUserID, Points: balance})
		require.NoError(t, err)
	}

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(f.recorder)

	f.deps = orchestrator.Dependencies{
		Gate:            auth.ContextGate{},
		Ledger:          f.ledger,
		History:         f.history,
		Providers:       generation.Providers{Name: "fake", Text: f.text, Image: f.image},
		Builder:         generation.NewRequestBuilder(log),
		Events:          emitter,
		NotificationTTL: time.Minute,
		Logger:          log,
	}
	for _, c := range configure {
		c(&f.deps)
	}

	session, err := orchestrator.NewSession(testUserID, f.deps)
	require.NoError(t, err)
	t.Cleanup(session.Close)
	f.session = session
	return f
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	user, err := f.users.GetByID(context.Background(), testUserID)
	require.NoError(t, err)
	return user.Points
}

func (f *fixture) historyLen(t *testing.T) int {
	t.Helper()
	entries, err := f.history.ListByUser(context.Background(), testUserID)
	require.NoError(t, err)
	return len(entries)
}

func imageAttachments(n int) []domain.Attachment {
	out := make([]domain.Attachment, n)
	for i := range out {
		out[i] = domain.Attachment{Name: "photo.png", MIMEType: "image/png", Data: pngBytes}
	}
	return out
}

var errBoom = errors.New("boom")
