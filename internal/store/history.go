package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// HistoryStore defines the interface for the append-only generation history.
// There are no update or delete operations.
type HistoryStore interface {
	// Create saves a new entry.
	// Returns validation errors from the domain HistoryEntry if data is invalid.
	// Returns ErrInvalidEntity if the user does not exist.
	Create(ctx context.Context, entry *domain.HistoryEntry) error

	// GetByID retrieves one entry owned by userID.
	// Returns ErrHistoryEntryNotFound if no such entry exists for that user.
	GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.HistoryEntry, error)

	// ListByUser returns at most limit entries for the user, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error)

	// WithTx returns a new HistoryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) HistoryStore
}
