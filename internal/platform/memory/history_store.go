package memory

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// HistoryStore keeps entries per user in insertion order.
type HistoryStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry
	users   *UserStore
	logger  *slog.Logger
}

var _ store.HistoryStore = (*HistoryStore)(nil)

// NewHistoryStore creates an empty HistoryStore. When users is non-nil,
// entries for unknown users are rejected the way a foreign key would.
func NewHistoryStore(users *UserStore, log *slog.Logger) *HistoryStore {
	if log == nil {
		log = slog.Default()
	}
	return &HistoryStore{
		entries: make(map[string][]domain.HistoryEntry),
		users:   users,
		logger:  log.With(slog.String("component", "memory_history_store")),
	}
}

func (s *HistoryStore) WithTx(*sql.Tx) store.HistoryStore {
	return s
}

func (s *HistoryStore) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if s.users != nil {
		if _, err := s.users.GetByID(ctx, entry.UserID); err != nil {
			return store.ErrInvalidEntity
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.UserID] = append(s.entries[entry.UserID], *entry)
	return nil
}

func (s *HistoryStore) GetByID(_ context.Context, userID string, id uuid.UUID) (*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, entry := range s.entries[userID] {
		if entry.ID == id {
			found := entry
			return &found, nil
		}
	}
	return nil, store.ErrHistoryEntryNotFound
}

// ListByUser returns entries newest first. Entries with equal timestamps
// keep reverse insertion order.
func (s *HistoryStore) ListByUser(_ context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	owned := slices.Clone(s.entries[userID])
	s.mu.RUnlock()

	slices.Reverse(owned)
	slices.SortStableFunc(owned, func(a, b domain.HistoryEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if limit > 0 && len(owned) > limit {
		owned = owned[:limit]
	}
	if owned == nil {
		owned = make([]domain.HistoryEntry, 0)
	}
	return owned, nil
}
