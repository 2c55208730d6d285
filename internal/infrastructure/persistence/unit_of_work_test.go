package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/backoffice/backend/internal/domain/payment"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInTransaction_CommitPersistsAllWrites(t *testing.T) {
	db := openSQLiteDB(t)
	database := &Database{DB: db}
	repo := NewGormPaymentOrderRepository(db)
	ctx := context.Background()

	first := seedOrder(t, repo, uuid.New(), 100)
	second := seedOrder(t, repo, uuid.New(), 200)
	require.NoError(t, first.Approve(uuid.New()))
	require.NoError(t, second.Approve(uuid.New()))

	err := database.InTransaction(ctx, func(ctx context.Context) error {
		if err := repo.SaveWithLock(ctx, first, 1); err != nil {
			return err
		}
		return repo.SaveWithLock(ctx, second, 1)
	})
	require.NoError(t, err)

	for _, id := range []uuid.UUID{first.ID, second.ID} {
		found, findErr := repo.FindByID(ctx, id)
		require.NoError(t, findErr)
		assert.Equal(t, payment.OrderStatusApproved, found.Status)
		assert.Equal(t, 2, found.Version)
	}
}

func TestInTransaction_LockConflictRollsBackEarlierWrites(t *testing.T) {
	db := openSQLiteDB(t)
	database := &Database{DB: db}
	repo := NewGormPaymentOrderRepository(db)
	ctx := context.Background()

	first := seedOrder(t, repo, uuid.New(), 100)
	second := seedOrder(t, repo, uuid.New(), 200)
	require.NoError(t, first.Approve(uuid.New()))
	require.NoError(t, second.Approve(uuid.New()))

	err := database.InTransaction(ctx, func(ctx context.Context) error {
		if err := repo.SaveWithLock(ctx, first, 1); err != nil {
			return err
		}
		// Stale expected version: someone else got here first.
		return repo.SaveWithLock(ctx, second, 5)
	})
	require.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The first write succeeded inside the transaction but must not
	// survive the rollback.
	found, findErr := repo.FindByID(ctx, first.ID)
	require.NoError(t, findErr)
	assert.Equal(t, payment.OrderStatusPending, found.Status)
	assert.Equal(t, 1, found.Version)
}

func TestInTransaction_JoinsEnclosingTransaction(t *testing.T) {
	db := openSQLiteDB(t)
	database := &Database{DB: db}
	repo := NewGormPaymentOrderRepository(db)
	ctx := context.Background()

	order := seedOrder(t, repo, uuid.New(), 100)
	require.NoError(t, order.Approve(uuid.New()))

	boom := errors.New("inner failure")
	err := database.InTransaction(ctx, func(ctx context.Context) error {
		if err := repo.SaveWithLock(ctx, order, 1); err != nil {
			return err
		}
		// A nested call joins the open transaction, so its failure
		// unwinds everything written so far.
		return database.InTransaction(ctx, func(ctx context.Context) error {
			return boom
		})
	})
	require.ErrorIs(t, err, boom)

	found, findErr := repo.FindByID(ctx, order.ID)
	require.NoError(t, findErr)
	assert.Equal(t, payment.OrderStatusPending, found.Status)
}
