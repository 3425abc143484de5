package persistence

import (
	"context"
	"errors"
	"testing"

	appinv "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTransactionScope_Execute(t *testing.T) {
	ctx := context.Background()

	// place writes the order, its reservation and its push job together
	place := func(repos appinv.TransactionalRepositories, o *order.Order) error {
		if err := repos.OrderRepo().Create(ctx, o); err != nil {
			return err
		}
		if err := repos.InventoryRepo().Apply(ctx, o.Adjustments(order.StockEffectReserve)...); err != nil {
			return err
		}
		job, err := integration.NewSyncJob(integration.JobTypePushOrder, &o.ID, integration.SyncJobPayload{})
		if err != nil {
			return err
		}
		return repos.JobRepo().Enqueue(ctx, job)
	}

	t.Run("commits every write", func(t *testing.T) {
		db := newSQLiteDB(t)
		scope := NewGormTransactionScope(db)
		o := newTestOrder(t, "ORD-TX-1")

		require.NoError(t, scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			return place(repos, o)
		}))

		_, err := NewGormOrderRepository(db).FindByID(ctx, o.ID)
		require.NoError(t, err)
		rec, err := NewGormInventoryRepository(db).Find(ctx, o.Lines[0].ProductID, o.Lines[0].VariantID)
		require.NoError(t, err)
		assert.Equal(t, o.Lines[0].Quantity, rec.Reserved)
		open, err := NewGormSyncJobRepository(db).HasOpenJob(ctx, integration.JobTypePushOrder, o.ID)
		require.NoError(t, err)
		assert.True(t, open)
	})

	t.Run("rolls back every write", func(t *testing.T) {
		db := newSQLiteDB(t)
		scope := NewGormTransactionScope(db)
		o := newTestOrder(t, "ORD-TX-2")
		boom := errors.New("boom")

		err := scope.Execute(ctx, func(repos appinv.TransactionalRepositories) error {
			if err := place(repos, o); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		_, err = NewGormOrderRepository(db).FindByID(ctx, o.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = NewGormInventoryRepository(db).Find(ctx, o.Lines[0].ProductID, o.Lines[0].VariantID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		open, err := NewGormSyncJobRepository(db).HasOpenJob(ctx, integration.JobTypePushOrder, o.ID)
		require.NoError(t, err)
		assert.False(t, open)
	})
}
