package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/events"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// Account is the balance and history loaded by Refresh.
type Account struct {
	Balance int                   `json:"balance"`
	History []domain.HistoryEntry `json:"history"`
}

// Refresh reloads the balance and history of the session owner. A zero or
// missing balance triggers account creation, so new users receive the
// starting balance on first load.
func (s *Session) Refresh(ctx context.Context) (Account, error) {
	identity, err := s.authorize(ctx)
	if err != nil {
		return Account{}, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	balance, err := s.deps.Ledger.GetBalance(ctx, s.userID)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return Account{}, fmt.Errorf("failed to load balance: %w", err)
	}
	if err != nil || balance == 0 {
		log.Debug("ensuring account exists", slog.Int("balance", balance))
		user, err := s.deps.Ledger.EnsureAccountExists(ctx, s.userID, identity.Profile())
		if err != nil {
			return Account{}, fmt.Errorf("failed to ensure account: %w", err)
		}
		balance = user.Points
	}
	s.setBalance(balance)

	history, err := s.deps.History.ListByUser(ctx, s.userID)
	if err != nil {
		return Account{Balance: balance}, fmt.Errorf("failed to load history: %w", err)
	}

	s.mu.Lock()
	s.history = slices.Clone(history)
	s.mu.Unlock()

	return Account{Balance: balance, History: history}, nil
}

// SelectHistoryEntry displays a past generation again. It restores the
// content type and prompt and clears attachments. No points are charged
// and no history is written.
func (s *Session) SelectHistoryEntry(ctx context.Context, id uuid.UUID) (*domain.GeneratedContent, error) {
	if _, err := s.authorize(ctx); err != nil {
		return nil, err
	}

	entry, err := s.deps.History.Get(ctx, s.userID, id)
	if err != nil {
		return nil, err
	}

	content, err := entry.Restore()
	if err != nil {
		return nil, fmt.Errorf("failed to restore history entry %s: %w", id, err)
	}

	s.mu.Lock()
	s.contentType = entry.ContentType
	s.prompt = entry.Prompt
	s.attachments = nil
	s.mu.Unlock()

	s.display(ctx, content, events.SourceHistory)
	return content, nil
}
