package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// PointsLedger owns every change to a user's point balance.
type PointsLedger interface {
	// GetBalance returns the persisted balance.
	// Returns store.ErrUserNotFound when the account does not exist.
	GetBalance(ctx context.Context, userID string) (int, error)

	// Debit subtracts amount from the balance in one conditional update.
	// Returns domain.ErrInsufficientFunds when amount exceeds the balance,
	// in which case the balance is unchanged.
	Debit(ctx context.Context, userID string, amount int) (domain.PointsTransaction, error)

	// Credit adds amount to the balance. Non-positive amounts are rejected
	// with domain.ErrInvalidAmount.
	Credit(ctx context.Context, userID string, amount int) (domain.PointsTransaction, error)

	// EnsureAccountExists creates the account with the starting balance when
	// missing and refreshes email and name otherwise. It is idempotent.
	EnsureAccountExists(ctx context.Context, userID string, profile domain.Profile) (*domain.User, error)

	// Reconcile re-reads the persisted balance so callers holding a cached
	// balance can recover after a failed debit.
	Reconcile(ctx context.Context, userID string) (int, error)
}

// PointsLedgerImpl implements PointsLedger over a store.UserStore.
type PointsLedgerImpl struct {
	users           store.UserStore
	db              *sql.DB
	startingBalance int
	logger          *slog.Logger
}

var _ PointsLedger = (*PointsLedgerImpl)(nil)

// NewPointsLedger creates a PointsLedger. db may be nil for stores that do
// not run on a SQL database; credits then run without a transaction.
func NewPointsLedger(users store.UserStore, db *sql.DB, startingBalance int, logger *slog.Logger) *PointsLedgerImpl {
	if users == nil {
		panic("users store cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if startingBalance < 0 {
		startingBalance = domain.DefaultStartingBalance
	}
	return &PointsLedgerImpl{
		users:           users,
		db:              db,
		startingBalance: startingBalance,
		logger:          logger.With(slog.String("component", "points_ledger")),
	}
}

// GetBalance implements PointsLedger.
func (l *PointsLedgerImpl) GetBalance(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, ErrInvalidUserID
	}

	user, err := l.users.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			logger.FromContextOrDefault(ctx, l.logger).Error("failed to read balance",
				slog.String("error", err.Error()),
				slog.String("user_id", userID))
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return user.Points, nil
}

// Debit implements PointsLedger.
func (l *PointsLedgerImpl) Debit(ctx context.Context, userID string, amount int) (domain.PointsTransaction, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	if strings.TrimSpace(userID) == "" {
		return domain.PointsTransaction{}, ErrInvalidUserID
	}
	if amount <= 0 {
		return domain.PointsTransaction{}, fmt.Errorf("%w: debit of %d", domain.ErrInvalidAmount, amount)
	}

	balance, err := l.users.AdjustPoints(ctx, userID, -amount)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			log.Debug("debit rejected for insufficient funds",
				slog.String("user_id", userID),
				slog.Int("amount", amount))
		} else {
			log.Error("failed to debit points",
				slog.String("error", err.Error()),
				slog.String("user_id", userID),
				slog.Int("amount", amount))
		}
		return domain.PointsTransaction{}, fmt.Errorf("failed to debit points: %w", err)
	}

	log.Info("points debited",
		slog.String("user_id", userID),
		slog.Int("amount", amount),
		slog.Int("balance", balance))
	return domain.PointsTransaction{UserID: userID, Delta: -amount, Balance: balance}, nil
}

// Credit implements PointsLedger.
// With a database configured, the existence check and the update share a
// transaction so a credit never lands on an account created concurrently
// with a different opening balance.
func (l *PointsLedgerImpl) Credit(ctx context.Context, userID string, amount int) (domain.PointsTransaction, error) {
	log := logger.FromContextOrDefault(ctx, l.logger)

	if strings.TrimSpace(userID) == "" {
		return domain.PointsTransaction{}, ErrInvalidUserID
	}
	if amount <= 0 {
		return domain.PointsTransaction{}, fmt.Errorf("%w: credit of %d", domain.ErrInvalidAmount, amount)
	}

	var balance int
	credit := func(ctx context.Context, users store.UserStore) error {
		if _, err := users.GetByID(ctx, userID); err != nil {
			return err
		}
		var err error
		balance, err = users.AdjustPoints(ctx, userID, amount)
		return err
	}

	var err error
	if l.db != nil {
		err = store.RunInTransaction(ctx, l.db, func(ctx context.Context, tx *sql.Tx) error {
			return credit(ctx, l.users.WithTx(tx))
		})
	} else {
		err = credit(ctx, l.users)
	}
	if err != nil {
		log.Error("failed to credit points",
			slog.String("error", err.Error()),
			slog.String("user_id", userID),
			slog.Int("amount", amount))
		return domain.PointsTransaction{}, fmt.Errorf("failed to credit points: %w", err)
	}

	log.Info("points credited",
		slog.String("user_id", userID),
		slog.Int("amount", amount),
		slog.Int("balance", balance))
	return domain.PointsTransaction{UserID: userID, Delta: amount, Balance: balance}, nil
}

// EnsureAccountExists implements PointsLedger.
func (l *PointsLedgerImpl) EnsureAccountExists(ctx context.Context, userID string, profile domain.Profile) (*domain.User, error) {
	user, err := domain.NewUser(userID, profile, l.startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	stored, err := l.users.Upsert(ctx, user)
	if err != nil {
		logger.FromContextOrDefault(ctx, l.logger).Error("failed to ensure account",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, fmt.Errorf("failed to ensure account: %w", err)
	}

	logger.FromContextOrDefault(ctx, l.logger).Debug("account ensured",
		slog.String("user_id", stored.ID),
		slog.Int("points", stored.Points))
	return stored, nil
}

// Reconcile implements PointsLedger.
func (l *PointsLedgerImpl) Reconcile(ctx context.Context, userID string) (int, error) {
	balance, err := l.GetBalance(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile balance: %w", err)
	}
	logger.FromContextOrDefault(ctx, l.logger).Debug("balance reconciled",
		slog.String("user_id", userID),
		slog.Int("balance", balance))
	return balance, nil
}
