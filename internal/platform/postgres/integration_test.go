//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/platform/postgres"
	"github.com/phrazzld/threadcraft-api/internal/store"
	"github.com/phrazzld/threadcraft-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_UserPoints(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)

		user, err := domain.NewUser("user_integration", domain.Profile{Email: "a@example.com"}, 5)
		require.NoError(t, err)
		_, err = users.Upsert(ctx, user)
		require.NoError(t, err)

		balance, err := users.AdjustPoints(ctx, user.ID, -5)
		require.NoError(t, err)
		assert.Equal(t, 0, balance)

		_, err = users.AdjustPoints(ctx, user.ID, -1)
		assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

		_, err = users.AdjustPoints(ctx, "user_missing", 10)
		assert.ErrorIs(t, err, store.ErrUserNotFound)

		// A repeated sign-in keeps the balance and blank fields.
		_, err = users.Upsert(ctx, &domain.User{ID: user.ID, Points: 50})
		require.NoError(t, err)
		stored, err := users.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, stored.Points)
		assert.Equal(t, "a@example.com", stored.Email)
	})
}

func TestIntegration_History(t *testing.T) {
	db := testdb.Open(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, nil)
		entries := postgres.NewPostgresHistoryStore(tx, nil)

		_, err := users.Upsert(ctx, &domain.User{ID: "user_history", Points: 50})
		require.NoError(t, err)

		base := time.Now().UTC().Truncate(time.Second)
		for i, prompt := range []string{"first", "second", "third"} {
			entry, err := domain.NewHistoryEntry("user_history", &domain.GeneratedContent{
				ContentType: domain.ContentTypeTwitter,
				Prompt:      prompt,
				Segments:    []string{"a", "b"},
			})
			require.NoError(t, err)
			entry.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, entries.Create(ctx, entry))
		}

		list, err := entries.ListByUser(ctx, "user_history", 2)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "third", list[0].Prompt)
		assert.Equal(t, "a\n\nb", list[0].Content)

		got, err := entries.GetByID(ctx, "user_history", list[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "second", got.Prompt)

		_, err = entries.GetByID(ctx, "someone_else", list[1].ID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		// The foreign key violation aborts the transaction, so this runs last.
		orphan, err := domain.NewHistoryEntry("user_nobody", &domain.GeneratedContent{
			ContentType: domain.ContentTypeLinkedIn,
			Prompt:      "x",
			Segments:    []string{"y"},
		})
		require.NoError(t, err)
		assert.ErrorIs(t, entries.Create(ctx, orphan), store.ErrInvalidEntity)
	})
}
