package memory

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// UserStore keeps accounts in a map guarded by a mutex.
type UserStore struct {
	mu     sync.Mutex
	users  map[string]domain.User
	logger *slog.Logger
}

var _ store.UserStore = (*UserStore)(nil)

// NewUserStore creates an empty UserStore.
func NewUserStore(log *slog.Logger) *UserStore {
	if log == nil {
		log = slog.Default()
	}
	return &UserStore{
		users:  make(map[string]domain.User),
		logger: log.With(slog.String("component", "memory_user_store")),
	}
}

// WithTx returns the store itself; every operation is already atomic.
func (s *UserStore) WithTx(*sql.Tx) store.UserStore {
	return s
}

func (s *UserStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &user, nil
}

func (s *UserStore) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.users[user.ID]
	if !ok {
		existing = domain.User{
			ID:        user.ID,
			Points:    user.Points,
			CreatedAt: now,
		}
		logger.FromContextOrDefault(ctx, s.logger).Debug("user created",
			slog.String("user_id", user.ID),
			slog.Int("points", user.Points))
	}
	if user.Email != "" {
		existing.Email = user.Email
	}
	if user.Name != "" {
		existing.Name = user.Name
	}
	existing.UpdatedAt = now
	s.users[user.ID] = existing

	stored := existing
	return &stored, nil
}

func (s *UserStore) AdjustPoints(ctx context.Context, id string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return 0, store.ErrUserNotFound
	}
	if user.Points+delta < 0 {
		return 0, domain.ErrInsufficientFunds
	}

	user.Points += delta
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user

	logger.FromContextOrDefault(ctx, s.logger).Info("points adjusted",
		slog.String("user_id", id),
		slog.Int("delta", delta),
		slog.Int("balance", user.Points))
	return user.Points, nil
}
