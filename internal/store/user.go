package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/threadcraft-api/internal/domain"
)

// UserStore defines the interface for account and point balance persistence.
type UserStore interface {
	// GetByID retrieves a user by their identity provider ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// Upsert creates the user when missing, using user.Points as the opening
	// balance, or refreshes email and name of an existing user. The balance of
	// an existing user is never changed by Upsert.
	// Returns the stored user.
	Upsert(ctx context.Context, user *domain.User) (*domain.User, error)

	// AdjustPoints adds delta to the balance in a single conditional update and
	// returns the resulting balance. A negative delta that would take the
	// balance below zero is rejected with domain.ErrInsufficientFunds.
	// Returns ErrUserNotFound if the user does not exist.
	AdjustPoints(ctx context.Context, id string, delta int) (int, error)

	// WithTx returns a new UserStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}
