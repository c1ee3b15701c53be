package mocks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// HistoryStore is a testify mock of store.HistoryStore.
type HistoryStore struct {
	mock.Mock
}

var _ store.HistoryStore = (*HistoryStore)(nil)

func (m *HistoryStore) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *HistoryStore) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.HistoryEntry, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HistoryEntry), args.Error(1)
}

func (m *HistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HistoryEntry), args.Error(1)
}

func (m *HistoryStore) WithTx(*sql.Tx) store.HistoryStore {
	return m
}
