package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/events"
	"github.com/phrazzld/threadcraft-api/internal/generation"
	"github.com/phrazzld/threadcraft-api/internal/notify"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/service"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// DefaultContentType is selected when a session starts.
const DefaultContentType = domain.ContentTypeTwitter

// ImageArchiver stores a generated image and returns a URL that can be
// rendered in place of the inline data.
type ImageArchiver interface {
	Archive(ctx context.Context, userID string, image *domain.InlineMedia) (string, error)
}

// Dependencies are the collaborators shared by every session.
type Dependencies struct {
	Gate      auth.CredentialGate
	Ledger    service.PointsLedger
	History   service.HistoryService
	Providers generation.Providers
	Builder   *generation.RequestBuilder

	// Archiver is optional. Without it image history stores data URLs.
	Archiver ImageArchiver

	// Events is optional.
	Events events.EventEmitter

	NotificationTTL time.Duration
	Logger          *slog.Logger
}

func (d Dependencies) validate() error {
	switch {
	case d.Gate == nil:
		return fmt.Errorf("%w: credential gate", ErrMissingDependency)
	case d.Ledger == nil:
		return fmt.Errorf("%w: points ledger", ErrMissingDependency)
	case d.History == nil:
		return fmt.Errorf("%w: history service", ErrMissingDependency)
	case d.Builder == nil:
		return fmt.Errorf("%w: request builder", ErrMissingDependency)
	}
	return nil
}

// Session is the generation state of one user.
type Session struct {
	userID        string
	deps          Dependencies
	notifications *notify.Channel
	logger        *slog.Logger

	mu           sync.Mutex
	busy         bool
	state        State
	contentType  domain.ContentType
	prompt       string
	balance      int
	balanceKnown bool
	displayed    *domain.GeneratedContent
	attachments  []domain.Attachment
	history      []domain.HistoryEntry
}

// NewSession creates an idle session for the user.
func NewSession(userID string, deps Dependencies) (*Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, domain.ErrEmptyUserID
	}
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	log := deps.Logger.With(
		slog.String("component", "generation_session"),
		slog.String("user_id", userID),
	)
	return &Session{
		userID:        userID,
		deps:          deps,
		notifications: notify.New(deps.NotificationTTL, log),
		logger:        log,
		state:         StateIdle,
		contentType:   DefaultContentType,
	}, nil
}

// UserID returns the owner of the session.
func (s *Session) UserID() string {
	return s.userID
}

// Notifications returns the session's notification channel.
func (s *Session) Notifications() *notify.Channel {
	return s.notifications
}

// Close releases the notification channel.
func (s *Session) Close() {
	s.notifications.Close()
}

// inUse reports whether a generation is running or a stream is subscribed.
func (s *Session) inUse() bool {
	s.mu.Lock()
	busy := s.busy
	s.mu.Unlock()
	return busy || s.notifications.Subscribers() > 0
}

// cycle carries the per-call values of one Generate call.
type cycle struct {
	variant domain.Variant
	prompt  string
	started time.Time
	log     *slog.Logger
}

// Generate runs one generation cycle. An empty contentType uses the
// currently selected type. The cycle always ends in an Outcome and exactly
// one notification; errors are reported through Outcome.Err.
func (s *Session) Generate(ctx context.Context, contentType domain.ContentType, prompt string) Outcome {
	c := &cycle{
		prompt:  prompt,
		started: time.Now(),
		log:     logger.FromContextOrDefault(ctx, s.logger),
	}

	if !s.acquire() {
		return s.conclude(ctx, c, Outcome{State: StateFailed, Failure: FailurePrecondition, Err: ErrBusy}, MsgBusy)
	}
	defer s.release()

	if out, msg, ok := s.checkPreconditions(ctx, c, contentType); !ok {
		return s.conclude(ctx, c, out, msg)
	}

	// The cycle runs to completion even if the caller goes away.
	ctx = context.WithoutCancel(ctx)
	s.setState(StateDispatching)
	c.log.Debug("dispatching generation",
		slog.String("content_type", string(c.variant.Type())),
		slog.String("provider", s.deps.Providers.Name))

	req, err := s.deps.Builder.Build(ctx, c.variant, c.prompt, s.attachmentSnapshot())
	if err != nil {
		return s.providerFailure(ctx, c, fmt.Errorf("failed to build request: %w", err))
	}

	content, err := s.dispatch(ctx, req)
	if err != nil {
		return s.providerFailure(ctx, c, err)
	}

	s.setState(StateNormalizing)
	if !content.Usable() {
		return s.providerFailure(ctx, c, generation.ErrEmptyResponse)
	}
	s.display(ctx, content, events.SourceGeneration)

	s.setState(StateSettling)
	return s.settle(ctx, c, content)
}

// checkPreconditions resolves the variant and verifies identity, provider
// availability, balance and prompt in that order.
func (s *Session) checkPreconditions(ctx context.Context, c *cycle, contentType domain.ContentType) (Outcome, string, bool) {
	reject := func(err error, msg string) (Outcome, string, bool) {
		return Outcome{State: StateFailed, Failure: FailurePrecondition, Err: err}, msg, false
	}

	if contentType == "" {
		contentType = s.selectedContentType()
	}
	variant, err := domain.ParseContentType(string(contentType))
	if err != nil {
		return reject(err, MsgUnknownContentType)
	}
	c.variant = variant

	identity, err := s.authorize(ctx)
	if err != nil {
		return reject(err, MsgSignIn)
	}

	if !generation.Configured(s.providerFor(variant)) {
		return reject(generation.ErrProviderUnavailable, MsgNotConfigured)
	}

	balance, err := s.loadBalance(ctx, identity)
	if err != nil {
		return reject(fmt.Errorf("failed to load balance: %w", err), MsgBalanceUnavailable)
	}
	if balance < variant.Cost() {
		return reject(
			fmt.Errorf("%w: balance %d, cost %d", domain.ErrInsufficientFunds, balance, variant.Cost()),
			MsgInsufficientPoints,
		)
	}

	if strings.TrimSpace(c.prompt) == "" {
		return reject(domain.ErrEmptyPrompt, MsgEmptyPrompt)
	}

	s.mu.Lock()
	s.prompt = c.prompt
	s.mu.Unlock()
	return Outcome{}, "", true
}

func (s *Session) providerFor(variant domain.Variant) any {
	if variant.Modality() == domain.ModalityImage {
		if s.deps.Providers.Image == nil {
			return nil
		}
		return s.deps.Providers.Image
	}
	if s.deps.Providers.Text == nil {
		return nil
	}
	return s.deps.Providers.Text
}

// dispatch calls the provider for the request's modality. A panicking
// adapter is reported as a provider failure.
func (s *Session) dispatch(ctx context.Context, req *domain.GenerationRequest) (content *domain.GeneratedContent, err error) {
	defer func() {
		if r := recover(); r != nil {
			content = nil
			err = fmt.Errorf("%w: provider panicked: %v", generation.ErrProviderFailure, r)
		}
	}()

	if req.Variant.Modality() == domain.ModalityImage {
		image, err := s.deps.Providers.Image.GenerateImage(ctx, req.Instruction)
		if err != nil {
			return nil, err
		}
		return generation.NormalizeImage(req, image), nil
	}

	raw, err := s.deps.Providers.Text.GenerateText(ctx, req.Instruction, req.Media)
	if err != nil {
		return nil, err
	}
	return generation.NormalizeText(req, raw), nil
}

// settle debits the cost and then appends the history entry. History is
// only written after a successful debit, and a failed history write does
// not refund the debit.
func (s *Session) settle(ctx context.Context, c *cycle, content *domain.GeneratedContent) Outcome {
	tx, err := s.deps.Ledger.Debit(ctx, s.userID, c.variant.Cost())
	if err != nil {
		c.log.Warn("debit failed after successful generation",
			slog.String("content_type", string(c.variant.Type())),
			slog.Int("cost", c.variant.Cost()),
			slog.Any("error", err))
		s.reconcile(ctx, c)
		return s.conclude(ctx, c, Outcome{
			State:   StatePartiallyFailed,
			Failure: FailurePersistence,
			Err:     fmt.Errorf("failed to debit points: %w", err),
			Content: content,
		}, MsgDebitFailed)
	}
	s.setBalance(tx.Balance)

	stored := s.archive(ctx, c, content)
	entry, err := s.deps.History.Append(ctx, s.userID, stored)
	if err != nil {
		c.log.Warn("history append failed after successful debit",
			slog.String("content_type", string(c.variant.Type())),
			slog.Any("error", err))
		return s.conclude(ctx, c, Outcome{
			State:   StatePartiallyFailed,
			Failure: FailurePersistence,
			Err:     fmt.Errorf("failed to save history: %w", err),
			Content: stored,
			Charged: c.variant.Cost(),
		}, MsgHistoryFailed)
	}
	s.recordHistory(*entry)

	return s.conclude(ctx, c, Outcome{
		State:   StateDone,
		Content: stored,
		Entry:   entry,
		Charged: c.variant.Cost(),
	}, c.variant.SuccessMessage())
}

// archive uploads generated images when an archiver is configured. Upload
// failures are logged and the history entry falls back to the data URL.
func (s *Session) archive(ctx context.Context, c *cycle, content *domain.GeneratedContent) *domain.GeneratedContent {
	if content.Image == nil || s.deps.Archiver == nil {
		return content
	}

	url, err := s.deps.Archiver.Archive(ctx, s.userID, content.Image)
	if err != nil {
		c.log.Warn("failed to archive generated image", slog.Any("error", err))
		return content
	}

	archived := *content
	archived.ImageURL = url
	return &archived
}

func (s *Session) reconcile(ctx context.Context, c *cycle) {
	balance, err := s.deps.Ledger.Reconcile(ctx, s.userID)
	if err != nil {
		c.log.Error("failed to reconcile balance", slog.Any("error", err))
		return
	}
	s.setBalance(balance)
}

func (s *Session) providerFailure(ctx context.Context, c *cycle, err error) Outcome {
	return s.conclude(ctx, c, Outcome{
		State:   StateFailed,
		Failure: FailureProvider,
		Err:     err,
	}, c.variant.FailureMessage())
}

// conclude publishes the single notification of the cycle and reports it.
func (s *Session) conclude(ctx context.Context, c *cycle, out Outcome, message string) Outcome {
	out.Duration = time.Since(c.started)
	out.Balance = s.cachedBalance()

	kind := domain.NotificationError
	if out.State == StateDone {
		kind = domain.NotificationSuccess
	}
	out.Notification = s.notifications.Publish(kind, message)

	attrs := []any{
		slog.String("state", out.State.String()),
		slog.Duration("duration", out.Duration),
	}
	if c.variant != nil {
		attrs = append(attrs, slog.String("content_type", string(c.variant.Type())))
	}
	switch out.Failure {
	case FailureNone:
		c.log.Info("generation completed", attrs...)
	case FailurePrecondition:
		c.log.Info("generation rejected", append(attrs, slog.Any("error", out.Err))...)
	case FailurePersistence:
		c.log.Warn("generation partially failed", append(attrs, slog.Any("error", out.Err))...)
	default:
		c.log.Error("generation failed", append(attrs, slog.Any("error", out.Err))...)
	}

	finished := events.GenerationFinished{
		Provider: s.deps.Providers.Name,
		State:    out.State.String(),
		Failure:  out.Failure.String(),
		Cost:     out.Charged,
		Balance:  out.Balance,
		Duration: out.Duration,
	}
	if c.variant != nil {
		finished.ContentType = c.variant.Type()
	}
	s.emit(ctx, events.TypeGenerationFinished, finished)

	return out
}

// display makes content the visible result and notifies listeners.
func (s *Session) display(ctx context.Context, content *domain.GeneratedContent, source string) {
	s.mu.Lock()
	s.displayed = content
	s.mu.Unlock()

	s.emit(ctx, events.TypeContentDisplayed, events.ContentDisplayed{
		ContentType: content.ContentType,
		Prompt:      content.Prompt,
		Segments:    content.Segments,
		Source:      source,
	})
}

func (s *Session) emit(ctx context.Context, eventType string, payload any) {
	if s.deps.Events == nil {
		return
	}
	event, err := events.NewEvent(eventType, s.userID, payload)
	if err != nil {
		s.logger.Error("failed to create event", slog.String("event_type", eventType), slog.Any("error", err))
		return
	}
	if err := s.deps.Events.EmitEvent(ctx, event); err != nil {
		s.logger.Warn("event handler failed", slog.String("event_type", eventType), slog.Any("error", err))
	}
}

// loadBalance reads the persisted balance, creating the account when it
// does not exist yet.
func (s *Session) loadBalance(ctx context.Context, identity auth.Identity) (int, error) {
	balance, err := s.deps.Ledger.GetBalance(ctx, s.userID)
	if errors.Is(err, store.ErrUserNotFound) {
		user, ensureErr := s.deps.Ledger.EnsureAccountExists(ctx, s.userID, identity.Profile())
		if ensureErr != nil {
			return 0, ensureErr
		}
		balance, err = user.Points, nil
	}
	if err != nil {
		return 0, err
	}
	s.setBalance(balance)
	return balance, nil
}

func (s *Session) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	s.state = StateIdle
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) setBalance(balance int) {
	s.mu.Lock()
	s.balance = balance
	s.balanceKnown = true
	s.mu.Unlock()
}

func (s *Session) cachedBalance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *Session) selectedContentType() domain.ContentType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contentType
}

func (s *Session) recordHistory(entry domain.HistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]domain.HistoryEntry{entry}, s.history...)
}
