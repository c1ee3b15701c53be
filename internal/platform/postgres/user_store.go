package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id string) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, email, name, points, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user domain.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Points,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found", slog.String("user_id", id))
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user by ID",
			slog.String("error", err.Error()),
			slog.String("user_id", id))
		return nil, store.NewStoreError("user", "get", "failed to get user", MapError(err))
	}

	return &user, nil
}

// Upsert implements store.UserStore.Upsert
// Blank email or name values never overwrite stored ones.
func (s *PostgresUserStore) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during upsert",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID))
		return nil, err
	}

	query := `
		INSERT INTO users (id, email, name, points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE
		SET email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
		    name = COALESCE(NULLIF(EXCLUDED.name, ''), users.name),
		    updated_at = EXCLUDED.updated_at
		RETURNING id, email, name, points, created_at, updated_at
	`

	var stored domain.User
	err := s.db.QueryRowContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Points,
		time.Now().UTC(),
	).Scan(
		&stored.ID,
		&stored.Email,
		&stored.Name,
		&stored.Points,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to upsert user",
			slog.String("error", err.Error()),
			slog.String("user_id", user.ID))
		return nil, store.NewStoreError("user", "upsert", "failed to upsert user", MapError(err))
	}

	log.Debug("user upserted",
		slog.String("user_id", stored.ID),
		slog.Int("points", stored.Points))
	return &stored, nil
}

// AdjustPoints implements store.UserStore.AdjustPoints
// The balance check and the update happen in one statement, so concurrent
// debits can never take the balance below zero.
func (s *PostgresUserStore) AdjustPoints(ctx context.Context, id string, delta int) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET points = points + $2, updated_at = $3
		WHERE id = $1 AND points + $2 >= 0
		RETURNING points
	`

	var balance int
	err := s.db.QueryRowContext(ctx, query, id, delta, time.Now().UTC()).Scan(&balance)
	if err == nil {
		log.Info("points adjusted",
			slog.String("user_id", id),
			slog.Int("delta", delta),
			slog.Int("balance", balance))
		return balance, nil
	}

	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("failed to adjust points",
			slog.String("error", err.Error()),
			slog.String("user_id", id),
			slog.Int("delta", delta))
		return 0, store.NewStoreError("user", "adjust_points", "failed to update balance", MapError(err))
	}

	// No row updated: either the user is missing or the balance is too low.
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		log.Error("failed to check user existence",
			slog.String("error", err.Error()),
			slog.String("user_id", id))
		return 0, store.NewStoreError("user", "adjust_points", "failed to check user", MapError(err))
	}
	if !exists {
		return 0, store.ErrUserNotFound
	}

	log.Debug("points adjustment rejected",
		slog.String("user_id", id),
		slog.Int("delta", delta))
	return 0, domain.ErrInsufficientFunds
}
