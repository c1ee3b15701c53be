package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/events"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	t.Run("requires user id", func(t *testing.T) {
		_, err := orchestrator.NewSession(" ", orchestrator.Dependencies{})
		assert.ErrorIs(t, err, domain.ErrEmptyUserID)
	})

	t.Run("requires dependencies", func(t *testing.T) {
		_, err := orchestrator.NewSession(testUserID, orchestrator.Dependencies{Gate: auth.ContextGate{}})
		assert.ErrorIs(t, err, orchestrator.ErrMissingDependency)
	})

	t.Run("starts idle with default content type", func(t *testing.T) {
		f := newFixture(t, 50)
		snap := f.session.Snapshot()
		assert.Equal(t, orchestrator.StateIdle, snap.State)
		assert.Equal(t, orchestrator.DefaultContentType, snap.ContentType)
		assert.Nil(t, snap.Balance)
		assert.Empty(t, snap.Attachments)
	})
}

func TestGenerate_TextDone(t *testing.T) {
	f := newFixture(t, 50)
	ctx := authedContext()

	f.recorder.onEvent = func(e *events.Event) {
		if e.Type == events.TypeContentDisplayed {
			// displayed before the debit settles
			user, err := f.users.GetByID(context.Background(), testUserID)
			require.NoError(t, err)
			assert.Equal(t, 50, user.Points)
		}
	}

	f.text.On("GenerateText", mock.Anything, mock.MatchedBy(func(instr string) bool {
		return strings.Contains(instr, "launch day")
	}), mock.Anything).Return("A\n\nB\n\n\nC", nil).Once()

	out := f.session.Generate(ctx, domain.ContentTypeTwitter, "launch day")

	require.Equal(t, orchestrator.StateDone, out.State, "err: %v", out.Err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, orchestrator.FailureNone, out.Failure)
	assert.NoError(t, out.Err)
	assert.Equal(t, []string{"A", "B", "C"}, out.Content.Segments)
	assert.Equal(t, 45, out.Balance)
	assert.Equal(t, domain.TextGenerationCost, out.Charged)
	require.NotNil(t, out.Entry)
	assert.Equal(t, "A\n\nB\n\nC", out.Entry.Content)

	assert.Equal(t, domain.NotificationSuccess, out.Notification.Kind)
	assert.Equal(t, "Content generated successfully!", out.Notification.Message)

	assert.Equal(t, 45, f.balance(t))
	assert.Equal(t, 1, f.historyLen(t))
	assert.Equal(t, []string{events.TypeContentDisplayed, events.TypeGenerationFinished}, f.recorder.types())

	var finished events.GenerationFinished
	f.recorder.last(t, events.TypeGenerationFinished, &finished)
	assert.Equal(t, "done", finished.State)
	assert.Equal(t, domain.TextGenerationCost, finished.Cost)
	assert.Equal(t, "fake", finished.Provider)

	snap := f.session.Snapshot()
	assert.Equal(t, orchestrator.StateIdle, snap.State)
	assert.False(t, snap.Busy)
	require.NotNil(t, snap.Balance)
	assert.Equal(t, 45, *snap.Balance)
	assert.Equal(t, "launch day", snap.Prompt)
	require.Len(t, snap.History, 1)
	assert.Equal(t, out.Entry.ID, snap.History[0].ID)
	f.text.AssertExpectations(t)
}

func TestGenerate_Preconditions(t *testing.T) {
	tests := []struct {
		name        string
		balance     int
		ctx         func() context.Context
		contentType domain.ContentType
		prompt      string
		configure   func(*orchestrator.Dependencies)
		wantErr     error
		wantMessage string
	}{
		{
			name:        "unauthenticated",
			balance:     50,
			ctx:         context.Background,
			contentType: domain.ContentTypeTwitter,
			prompt:      "hello",
			wantErr:     domain.ErrUnauthenticated,
			wantMessage: orchestrator.MsgSignIn,
		},
		{
			name:    "identity of another user",
			balance: 50,
			ctx: func() context.Context {
				return auth.WithIdentity(context.Background(), auth.Identity{UserID: "someone_else"})
			},
			contentType: domain.ContentTypeTwitter,
			prompt:      "hello",
			wantErr:     domain.ErrUnauthenticated,
			wantMessage: orchestrator.MsgSignIn,
		},
		{
			name:        "text provider not configured",
			balance:     50,
			ctx:         authedContext,
			contentType: domain.ContentTypeLinkedIn,
			prompt:      "hello",
			configure: func(d *orchestrator.Dependencies) {
				d.Providers.Text = generation.Unavailable{Reason: "missing key"}
			},
			wantErr:     generation.ErrProviderUnavailable,
			wantMessage: orchestrator.MsgNotConfigured,
		},
		{
			name:        "image provider missing",
			balance:     50,
			ctx:         authedContext,
			contentType: domain.ContentTypeImage,
			prompt:      "a fox",
			configure: func(d *orchestrator.Dependencies) {
				d.Providers.Image = nil
			},
			wantErr:     generation.ErrProviderUnavailable,
			wantMessage: orchestrator.MsgNotConfigured,
		},
		{
			name:        "balance below text cost",
			balance:     4,
			ctx:         authedContext,
			contentType: domain.ContentTypeTwitter,
			prompt:      "hello",
			wantErr:     domain.ErrInsufficientFunds,
			wantMessage: orchestrator.MsgInsufficientPoints,
		},
		{
			name:        "balance below image cost",
			balance:     9,
			ctx:         authedContext,
			contentType: domain.ContentTypeImage,
			prompt:      "a fox",
			wantErr:     domain.ErrInsufficientFunds,
			wantMessage: orchestrator.MsgInsufficientPoints,
		},
		{
			name:        "blank prompt",
			balance:     50,
			ctx:         authedContext,
			contentType: domain.ContentTypeTwitter,
			prompt:      "  \n ",
			wantErr:     domain.ErrEmptyPrompt,
			wantMessage: orchestrator.MsgEmptyPrompt,
		},
		{
			name:        "unknown content type",
			balance:     50,
			ctx:         authedContext,
			contentType: "tiktok",
			prompt:      "hello",
			wantErr:     domain.ErrUnknownContentType,
			wantMessage: orchestrator.MsgUnknownContentType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var configure []func(*orchestrator.Dependencies)
			if tt.configure != nil {
				configure = append(configure, tt.configure)
			}
			f := newFixture(t, tt.balance, configure...)

			out := f.session.Generate(tt.ctx(), tt.contentType, tt.prompt)

			assert.Equal(t, orchestrator.StateFailed, out.State)
			assert.Equal(t, orchestrator.FailurePrecondition, out.Failure)
			assert.ErrorIs(t, out.Err, tt.wantErr)
			assert.Equal(t, domain.NotificationError, out.Notification.Kind)
			assert.Equal(t, tt.wantMessage, out.Notification.Message)
			assert.Len(t, f.session.Notifications().Active(), 1)

			assert.Equal(t, tt.balance, f.balance(t))
			assert.Equal(t, 0, f.historyLen(t))
			f.text.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
			f.image.AssertNotCalled(t, "GenerateImage", mock.Anything, mock.Anything)
			assert.NotContains(t, f.recorder.types(), events.TypeContentDisplayed)
		})
	}
}

func TestGenerate_CreatesMissingAccount(t *testing.T) {
	f := newFixture(t, -1)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("post", nil).Once()

	out := f.session.Generate(authedContext(), domain.ContentTypeLinkedIn, "hello")

	require.Equal(t, orchestrator.StateDone, out.State, "err: %v", out.Err)
	assert.Equal(t, domain.DefaultStartingBalance-domain.TextGenerationCost, f.balance(t))

	user, err := f.users.GetByID(context.Background(), testUserID)
	require.NoError(t, err)
	assert.Equal(t, "writer@example.com", user.Email)
}

func TestGenerate_ProviderFailure(t *testing.T) {
	f := newFixture(t, 50)
	ctx := authedContext()

	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("first result", nil).Once()
	first := f.session.Generate(ctx, domain.ContentTypeLinkedIn, "first")
	require.Equal(t, orchestrator.StateDone, first.State)

	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: 503", generation.ErrProviderFailure)).Once()
	out := f.session.Generate(ctx, domain.ContentTypeLinkedIn, "second")

	assert.Equal(t, orchestrator.StateFailed, out.State)
	assert.Equal(t, orchestrator.FailureProvider, out.Failure)
	assert.ErrorIs(t, out.Err, generation.ErrProviderFailure)
	assert.Equal(t, "Failed to generate content", out.Notification.Message)
	assert.Nil(t, out.Content)
	assert.Zero(t, out.Charged)

	assert.Equal(t, 45, f.balance(t))
	assert.Equal(t, 1, f.historyLen(t))

	snap := f.session.Snapshot()
	require.NotNil(t, snap.Displayed)
	assert.Equal(t, []string{"first result"}, snap.Displayed.Segments, "previous content stays visible")
}

func TestGenerate_EmptyNormalizedResult(t *testing.T) {
	f := newFixture(t, 50)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("\n\n  \n\n", nil).Once()

	out := f.session.Generate(authedContext(), domain.ContentTypeTwitter, "hello")

	assert.Equal(t, orchestrator.StateFailed, out.State)
	assert.Equal(t, orchestrator.FailureProvider, out.Failure)
	assert.ErrorIs(t, out.Err, generation.ErrEmptyResponse)
	assert.Equal(t, "Failed to generate content", out.Notification.Message)
	assert.Equal(t, 50, f.balance(t))
	assert.Equal(t, 0, f.historyLen(t))
	assert.Nil(t, f.session.Snapshot().Displayed)
	assert.NotContains(t, f.recorder.types(), events.TypeContentDisplayed)
}

func TestGenerate_ProviderPanicIsRecovered(t *testing.T) {
	f := newFixture(t, 50)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { panic("nil map") }).
		Return("", nil).Once()

	out := f.session.Generate(authedContext(), domain.ContentTypeTwitter, "hello")

	assert.Equal(t, orchestrator.StateFailed, out.State)
	assert.Equal(t, orchestrator.FailureProvider, out.Failure)
	assert.ErrorIs(t, out.Err, generation.ErrProviderFailure)
	assert.Equal(t, 50, f.balance(t))

	snap := f.session.Snapshot()
	assert.False(t, snap.Busy, "session must be released after a panic")
}

func TestGenerate_Image(t *testing.T) {
	image := &domain.InlineMedia{Data: []byte("pixels"), MIMEType: "image/jpeg"}

	t.Run("stores data url without archiver", func(t *testing.T) {
		f := newFixture(t, 50)
		f.image.On("GenerateImage", mock.Anything, "a fox in snow").Return(image, nil).Once()

		out := f.session.Generate(authedContext(), domain.ContentTypeImage, "a fox in snow")

		require.Equal(t, orchestrator.StateDone, out.State, "err: %v", out.Err)
		assert.Equal(t, "Image generated successfully!", out.Notification.Message)
		assert.Equal(t, []string{image.DataURL()}, out.Content.Segments)
		assert.Equal(t, 40, f.balance(t))
		require.NotNil(t, out.Entry)
		assert.Equal(t, image.DataURL(), out.Entry.Content)
		f.text.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("stores archive url", func(t *testing.T) {
		archiver := &fakeArchiver{url: "https://cdn.example.com/generated/a.jpg"}
		f := newFixture(t, 50, func(d *orchestrator.Dependencies) { d.Archiver = archiver })
		f.image.On("GenerateImage", mock.Anything, mock.Anything).Return(image, nil).Once()

		out := f.session.Generate(authedContext(), domain.ContentTypeImage, "a fox")

		require.Equal(t, orchestrator.StateDone, out.State)
		assert.Equal(t, 1, archiver.calls)
		assert.Equal(t, archiver.url, out.Entry.Content)
		assert.Equal(t, archiver.url, out.Content.ImageURL)
	})

	t.Run("archive failure falls back to data url", func(t *testing.T) {
		archiver := &fakeArchiver{err: errBoom}
		f := newFixture(t, 50, func(d *orchestrator.Dependencies) { d.Archiver = archiver })
		f.image.On("GenerateImage", mock.Anything, mock.Anything).Return(image, nil).Once()

		out := f.session.Generate(authedContext(), domain.ContentTypeImage, "a fox")

		require.Equal(t, orchestrator.StateDone, out.State)
		assert.Equal(t, image.DataURL(), out.Entry.Content)
	})

	t.Run("no image produced", func(t *testing.T) {
		f := newFixture(t, 50)
		f.image.On("GenerateImage", mock.Anything, mock.Anything).Return(nil, generation.ErrNoImageProduced).Once()

		out := f.session.Generate(authedContext(), domain.ContentTypeImage, "a fox")

		assert.Equal(t, orchestrator.StateFailed, out.State)
		assert.Equal(t, orchestrator.FailureProvider, out.Failure)
		assert.ErrorIs(t, out.Err, generation.ErrNoImageProduced)
		assert.Equal(t, "Image generation failed", out.Notification.Message)
		assert.Equal(t, 50, f.balance(t))
		assert.Equal(t, 0, f.historyLen(t))
	})
}

func TestGenerate_DebitFailure(t *testing.T) {
	var ledger *failingLedger
	f := newFixture(t, 50, func(d *orchestrator.Dependencies) {
		ledger = &failingLedger{PointsLedger: d.Ledger, debitErr: errBoom}
		d.Ledger = ledger
	})
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("post body", nil).Once()

	out := f.session.Generate(authedContext(), domain.ContentTypeLinkedIn, "hello")

	assert.Equal(t, orchestrator.StatePartiallyFailed, out.State)
	assert.Equal(t, orchestrator.FailurePersistence, out.Failure)
	assert.ErrorIs(t, out.Err, errBoom)
	assert.Equal(t, orchestrator.MsgDebitFailed, out.Notification.Message)
	assert.Equal(t, domain.NotificationError, out.Notification.Kind)
	assert.Zero(t, out.Charged)
	require.NotNil(t, out.Content)

	assert.Equal(t, 1, ledger.reconciled)
	assert.Equal(t, 50, out.Balance)
	assert.Equal(t, 0, f.historyLen(t), "history is only written after a successful debit")

	snap := f.session.Snapshot()
	require.NotNil(t, snap.Displayed)
	assert.Equal(t, []string{"post body"}, snap.Displayed.Segments)
}

func TestGenerate_HistoryFailure(t *testing.T) {
	f := newFixture(t, 50, func(d *orchestrator.Dependencies) {
		d.History = &failingHistory{HistoryService: d.History, appendErr: errBoom}
	})
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("post body", nil).Once()

	out := f.session.Generate(authedContext(), domain.ContentTypeLinkedIn, "hello")

	assert.Equal(t, orchestrator.StatePartiallyFailed, out.State)
	assert.Equal(t, orchestrator.FailurePersistence, out.Failure)
	assert.Equal(t, orchestrator.MsgHistoryFailed, out.Notification.Message)
	assert.Equal(t, domain.TextGenerationCost, out.Charged)
	assert.Equal(t, 45, f.balance(t), "debit is not rolled back")
	assert.Equal(t, 0, f.historyLen(t))
	assert.NotNil(t, f.session.Snapshot().Displayed)
}

func TestGenerate_BalanceDeltaIsZeroOrCost(t *testing.T) {
	tests := []struct {
		name        string
		contentType domain.ContentType
		setup       func(f *fixture)
	}{
		{"text success", domain.ContentTypeTwitter, func(f *fixture) {
			f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("x", nil)
		}},
		{"text failure", domain.ContentTypeTwitter, func(f *fixture) {
			f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("", errBoom)
		}},
		{"image success", domain.ContentTypeImage, func(f *fixture) {
			f.image.On("GenerateImage", mock.Anything, mock.Anything).
				Return(&domain.InlineMedia{Data: []byte{1}, MIMEType: "image/png"}, nil)
		}},
		{"image without data", domain.ContentTypeImage, func(f *fixture) {
			f.image.On("GenerateImage", mock.Anything, mock.Anything).Return(nil, generation.ErrNoImageProduced)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 50)
			tt.setup(f)

			variant, err := domain.ParseContentType(string(tt.contentType))
			require.NoError(t, err)

			before := f.balance(t)
			out := f.session.Generate(authedContext(), tt.contentType, "prompt")
			delta := before - f.balance(t)

			assert.Contains(t, []int{0, variant.Cost()}, delta)
			assert.Equal(t, delta, out.Charged)
		})
	}
}

func TestGenerate_BusySession(t *testing.T) {
	f := newFixture(t, 50)
	ctx := authedContext()

	started := make(chan struct{})
	release := make(chan struct{})
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return("first", nil).Once()

	done := make(chan orchestrator.Outcome, 1)
	go func() {
		done <- f.session.Generate(ctx, domain.ContentTypeLinkedIn, "first")
	}()
	<-started

	snap := f.session.Snapshot()
	assert.True(t, snap.Busy)
	assert.Equal(t, orchestrator.StateDispatching, snap.State)

	second := f.session.Generate(ctx, domain.ContentTypeLinkedIn, "second")
	assert.Equal(t, orchestrator.StateFailed, second.State)
	assert.Equal(t, orchestrator.FailurePrecondition, second.Failure)
	assert.ErrorIs(t, second.Err, orchestrator.ErrBusy)
	assert.Equal(t, orchestrator.MsgBusy, second.Notification.Message)

	close(release)
	first := <-done
	assert.Equal(t, orchestrator.StateDone, first.State)
	assert.Equal(t, 45, f.balance(t))
	f.text.AssertNumberOfCalls(t, "GenerateText", 1)
}

func TestGenerate_ConcurrentSessionsShareLedger(t *testing.T) {
	f := newFixture(t, 50)
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("ok", nil)

	sessions, err := orchestrator.NewSessions(f.deps, 0)
	require.NoError(t, err)
	t.Cleanup(sessions.Close)
	s, err := sessions.Get(testUserID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	outcomes := make(chan orchestrator.Outcome, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes <- s.Generate(authedContext(), domain.ContentTypeLinkedIn, "hi")
		}()
	}
	wg.Wait()
	close(outcomes)

	charged := 0
	for out := range outcomes {
		charged += out.Charged
	}
	assert.Equal(t, 50-f.balance(t), charged)
	assert.GreaterOrEqual(t, f.balance(t), 0)
}

func TestGenerate_DetachesCallerCancellation(t *testing.T) {
	f := newFixture(t, 50)
	ctx, cancel := context.WithCancel(authedContext())

	f.text.On("GenerateText", mock.MatchedBy(func(ctx context.Context) bool {
		return ctx.Err() == nil
	}), mock.Anything, mock.Anything).Return("still here", nil).Once()

	cancel()
	out := f.session.Generate(ctx, domain.ContentTypeLinkedIn, "hello")

	assert.Equal(t, orchestrator.StateDone, out.State, "err: %v", out.Err)
	f.text.AssertExpectations(t)
}

func TestGenerate_UsesSelectedContentType(t *testing.T) {
	f := newFixture(t, 50)
	ctx := authedContext()
	require.NoError(t, f.session.SelectContentType(ctx, domain.ContentTypeImage))

	f.image.On("GenerateImage", mock.Anything, "sunset").
		Return(&domain.InlineMedia{Data: []byte{1, 2}}, nil).Once()

	out := f.session.Generate(ctx, "", "sunset")

	require.Equal(t, orchestrator.StateDone, out.State, "err: %v", out.Err)
	assert.Equal(t, domain.ContentTypeImage, out.Content.ContentType)
	assert.Equal(t, 40, f.balance(t))
}

func TestGenerate_EventHandlerErrorsDoNotFailCycle(t *testing.T) {
	f := newFixture(t, 50, func(d *orchestrator.Dependencies) {
		emitter := events.NewInMemoryEventEmitter(discardLogger())
		emitter.RegisterHandler(events.HandlerFunc(func(context.Context, *events.Event) error {
			return errors.New("subscriber gone")
		}))
		d.Events = emitter
	})
	f.text.On("GenerateText", mock.Anything, mock.Anything, mock.Anything).Return("ok", nil).Once()

	out := f.session.Generate(authedContext(), domain.ContentTypeLinkedIn, "hello")
	assert.Equal(t, orchestrator.StateDone, out.State)
}
