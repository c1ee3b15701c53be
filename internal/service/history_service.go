package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// DefaultHistoryLimit caps the number of entries returned by ListByUser.
const DefaultHistoryLimit = 50

// HistoryService records and retrieves completed generations.
type HistoryService interface {
	// Append stores the content as a new entry with a fresh id and timestamp.
	Append(ctx context.Context, userID string, content *domain.GeneratedContent) (*domain.HistoryEntry, error)

	// ListByUser returns the user's entries newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error)

	// Get returns one entry owned by the user.
	// Returns ErrHistoryNotFound when no such entry exists.
	Get(ctx context.Context, userID string, id uuid.UUID) (*domain.HistoryEntry, error)
}

// HistoryServiceImpl implements HistoryService over a store.HistoryStore.
type HistoryServiceImpl struct {
	entries store.HistoryStore
	limit   int
	logger  *slog.Logger
}

var _ HistoryService = (*HistoryServiceImpl)(nil)

// NewHistoryService creates a HistoryService. A non-positive limit selects
// DefaultHistoryLimit.
func NewHistoryService(entries store.HistoryStore, limit int, logger *slog.Logger) *HistoryServiceImpl {
	if entries == nil {
		panic("history store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &HistoryServiceImpl{
		entries: entries,
		limit:   limit,
		logger:  logger.With(slog.String("component", "history_service")),
	}
}

func (s *HistoryServiceImpl) Append(ctx context.Context, userID string, content *domain.GeneratedContent) (*domain.HistoryEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := domain.NewHistoryEntry(userID, content)
	if err != nil {
		log.Warn("refusing to store invalid history entry",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to create history entry: %w", err)
	}

	if err := s.entries.Create(ctx, entry); err != nil {
		log.Error("failed to append history entry",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.String("content_type", string(entry.ContentType)))
		return nil, fmt.Errorf("failed to append history entry: %w", err)
	}

	log.Debug("history entry appended",
		slog.String("entry_id", entry.ID.String()),
		slog.String("user_id", userID))
	return entry, nil
}

func (s *HistoryServiceImpl) ListByUser(ctx context.Context, userID string) ([]domain.HistoryEntry, error) {
	entries, err := s.entries.ListByUser(ctx, userID, s.limit)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list history",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, nil
}

func (s *HistoryServiceImpl) Get(ctx context.Context, userID string, id uuid.UUID) (*domain.HistoryEntry, error) {
	entry, err := s.entries.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, store.ErrHistoryEntryNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to get history entry: %w", err)
	}
	return entry, nil
}
