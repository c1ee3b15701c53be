package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/store"
)

// PostgresHistoryStore implements the store.HistoryStore interface
// on top of the generated_content table.
type PostgresHistoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresHistoryStore creates a new PostgreSQL implementation of the HistoryStore interface.
func NewPostgresHistoryStore(db store.DBTX, logger *slog.Logger) *PostgresHistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresHistoryStore{
		db:     db,
		logger: logger.With(slog.String("component", "history_store")),
	}
}

// Ensure PostgresHistoryStore implements store.HistoryStore interface
var _ store.HistoryStore = (*PostgresHistoryStore)(nil)

// WithTx implements store.HistoryStore.WithTx
func (s *PostgresHistoryStore) WithTx(tx *sql.Tx) store.HistoryStore {
	return &PostgresHistoryStore{db: tx, logger: s.logger}
}

// Create implements store.HistoryStore.Create
func (s *PostgresHistoryStore) Create(ctx context.Context, entry *domain.HistoryEntry) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("history entry validation failed during create",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()))
		return err
	}

	query := `
		INSERT INTO generated_content (id, user_id, content_type, prompt, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.UserID,
		string(entry.ContentType),
		entry.Prompt,
		entry.Content,
		entry.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during history creation",
				slog.String("error", err.Error()),
				slog.String("user_id", entry.UserID))
			return fmt.Errorf("%w: user with ID %s not found", store.ErrInvalidEntity, entry.UserID)
		}
		log.Error("failed to create history entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("user_id", entry.UserID))
		return store.NewStoreError("history_entry", "create", "failed to insert entry", MapError(err))
	}

	log.Info("history entry created",
		slog.String("entry_id", entry.ID.String()),
		slog.String("user_id", entry.UserID),
		slog.String("content_type", string(entry.ContentType)))
	return nil
}

// GetByID implements store.HistoryStore.GetByID
func (s *PostgresHistoryStore) GetByID(ctx context.Context, userID string, id uuid.UUID) (*domain.HistoryEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, content_type, prompt, content, created_at
		FROM generated_content
		WHERE id = $1 AND user_id = $2
	`

	entry, err := scanEntry(s.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("history entry not found",
				slog.String("entry_id", id.String()),
				slog.String("user_id", userID))
			return nil, store.ErrHistoryEntryNotFound
		}
		log.Error("failed to get history entry",
			slog.String("error", err.Error()),
			slog.String("entry_id", id.String()))
		return nil, store.NewStoreError("history_entry", "get", "failed to get entry", MapError(err))
	}

	return entry, nil
}

// ListByUser implements store.HistoryStore.ListByUser
func (s *PostgresHistoryStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, content_type, prompt, content, created_at
		FROM generated_content
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		log.Error("failed to list history",
			slog.String("error", err.Error()),
			slog.String("user_id", userID))
		return nil, store.NewStoreError("history_entry", "list", "failed to query entries", MapError(err))
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, store.NewStoreError("history_entry", "list", "failed to scan entry", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("history_entry", "list", "failed to iterate entries", err)
	}

	log.Debug("history listed",
		slog.String("user_id", userID),
		slog.Int("count", len(entries)))
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.HistoryEntry, error) {
	var entry domain.HistoryEntry
	var contentType string
	if err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&contentType,
		&entry.Prompt,
		&entry.Content,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	entry.ContentType = domain.ContentType(contentType)
	return &entry, nil
}
