package persistence

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/erp/ordersync/internal/domain/order"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(t *testing.T, number string) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderInput{
		OrderNumber:  number,
		Customer:     order.Customer{Name: "Anna Nowak", Email: "anna@example.com"},
		Currency:     "PLN",
		ShippingCost: decimal.NewFromInt(12),
		Lines: []order.LineInput{
			{ProductID: uuid.New(), SKU: "MUG-1", Name: "Mug", Quantity: 2, UnitPrice: decimal.NewFromInt(25)},
			{ProductID: uuid.New(), VariantID: uuid.New(), SKU: "TEE-M", Name: "T-shirt M", Quantity: 1, UnitPrice: decimal.NewFromInt(60)},
		},
	})
	require.NoError(t, err)
	return o
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))

	o := newTestOrder(t, "ORD-1")
	require.NoError(t, repo.Create(ctx, o))

	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", loaded.OrderNumber)
	assert.Equal(t, order.OrderStatusOpen, loaded.Status)
	assert.Equal(t, order.PaymentStatusPending, loaded.PaymentStatus)
	assert.Len(t, loaded.Lines, 2)
	assert.Len(t, loaded.History, 1)
	assert.True(t, decimal.NewFromInt(110).Equal(loaded.Subtotal()))
	assert.Nil(t, loaded.ExternalOrderID)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormOrderRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("writes status with version check and appends history", func(t *testing.T) {
		repo := NewGormOrderRepository(newSQLiteDB(t))
		o := newTestOrder(t, "ORD-2")
		require.NoError(t, repo.Create(ctx, o))

		require.NoError(t, o.MarkPaid(time.Now()))
		require.NoError(t, repo.Save(ctx, o))
		assert.Equal(t, 2, o.Version)

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.PaymentStatusPaid, loaded.PaymentStatus)
		assert.Equal(t, order.OrderStatusConfirmed, loaded.Status)
		assert.Equal(t, 2, loaded.Version)
		require.Len(t, loaded.History, 2)
		assert.Equal(t, order.HistorySourcePayment, loaded.History[1].Source)

		// saving again does not duplicate stored history
		require.NoError(t, repo.Save(ctx, loaded))
		reloaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Len(t, reloaded.History, 2)
	})

	t.Run("stale copy is a concurrency conflict", func(t *testing.T) {
		repo := NewGormOrderRepository(newSQLiteDB(t))
		o := newTestOrder(t, "ORD-3")
		require.NoError(t, repo.Create(ctx, o))

		stale, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		require.NoError(t, o.MarkPaid(time.Now()))
		require.NoError(t, repo.Save(ctx, o))

		_, err = stale.Cancel("customer request", order.HistorySourceOperator, time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, stale), shared.ErrConcurrencyConflict)
	})

	t.Run("missing order is not found", func(t *testing.T) {
		repo := NewGormOrderRepository(newSQLiteDB(t))
		o := newTestOrder(t, "ORD-4")
		assert.ErrorIs(t, repo.Save(ctx, o), shared.ErrNotFound)
	})

	t.Run("does not clear the external id", func(t *testing.T) {
		repo := NewGormOrderRepository(newSQLiteDB(t))
		o := newTestOrder(t, "ORD-5")
		require.NoError(t, repo.Create(ctx, o))

		ok, err := repo.AssignExternalID(ctx, o.ID, "9001", time.Now())
		require.NoError(t, err)
		require.True(t, ok)

		// o was loaded before the id was assigned
		require.NoError(t, o.MarkPaid(time.Now()))
		require.NoError(t, repo.Save(ctx, o))

		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded.ExternalOrderID)
		assert.Equal(t, "9001", *loaded.ExternalOrderID)
	})
}

func TestGormOrderRepository_AssignExternalID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))
	o := newTestOrder(t, "ORD-6")
	require.NoError(t, repo.Create(ctx, o))

	tests := []struct {
		name       string
		orderID    uuid.UUID
		externalID string
		want       bool
		wantErr    error
	}{
		{name: "first assignment", orderID: o.ID, externalID: "7001", want: true},
		{name: "same id again", orderID: o.ID, externalID: "7001", want: true},
		{name: "different id is refused", orderID: o.ID, externalID: "7002", want: false},
		{name: "unknown order", orderID: uuid.New(), externalID: "7003", wantErr: shared.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := repo.AssignExternalID(ctx, tt.orderID, tt.externalID, time.Now())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "7001", *loaded.ExternalOrderID)
	assert.NotNil(t, loaded.ExternalSyncedAt)

	found, err := repo.FindByExternalIDs(ctx, []string{"7001", "nope"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, o.ID, found[0].ID)
}

func TestGormOrderRepository_FindPendingSync(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))
	now := time.Now()

	unpaidOld := newTestOrder(t, "UNPAID-OLD")
	unpaidOld.CreatedAt = now.Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, unpaidOld))

	unpaidFresh := newTestOrder(t, "UNPAID-FRESH")
	require.NoError(t, repo.Create(ctx, unpaidFresh))

	paid := newTestOrder(t, "PAID")
	require.NoError(t, paid.MarkPaid(now))
	require.NoError(t, repo.Create(ctx, paid))

	cancelled := newTestOrder(t, "CANCELLED")
	cancelled.CreatedAt = now.Add(-3 * time.Hour)
	_, err := cancelled.Cancel("", order.HistorySourceLocal, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, cancelled))

	lagging := newTestOrder(t, "LAGGING")
	require.NoError(t, lagging.MarkPaid(now))
	require.NoError(t, repo.Create(ctx, lagging))
	_, err = repo.AssignExternalID(ctx, lagging.ID, "5005", now)
	require.NoError(t, err)

	synced := newTestOrder(t, "SYNCED")
	require.NoError(t, synced.MarkPaid(now))
	require.NoError(t, repo.Create(ctx, synced))
	_, err = repo.AssignExternalID(ctx, synced.ID, "5006", now)
	require.NoError(t, err)
	require.NoError(t, repo.MarkPaidSynced(ctx, synced.ID, now))

	pending, err := repo.FindPendingSync(ctx, order.PendingSyncQuery{
		UnpaidCreatedBefore: now.Add(-30 * time.Minute),
		Limit:               10,
	})
	require.NoError(t, err)

	numbers := make([]string, len(pending))
	for i, o := range pending {
		numbers[i] = o.OrderNumber
	}
	require.Len(t, numbers, 3)
	// paid orders come first
	assert.ElementsMatch(t, []string{"PAID", "LAGGING"}, numbers[:2])
	assert.Equal(t, "UNPAID-OLD", numbers[2])

	limited, err := repo.FindPendingSync(ctx, order.PendingSyncQuery{UnpaidCreatedBefore: now, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGormOrderRepository_SyncColumns(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newSQLiteDB(t))
	o := newTestOrder(t, "ORD-7")
	require.NoError(t, repo.Create(ctx, o))

	require.NoError(t, repo.RecordSyncError(ctx, o.ID, strings.Repeat("x", 2500)))
	loaded, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.SyncError, 2000)

	at := time.Now()
	require.NoError(t, repo.MarkPaidSynced(ctx, o.ID, at))
	loaded, err = repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.SyncError)
	require.NotNil(t, loaded.PaidSyncedAt)

	// a second call keeps the first timestamp
	require.NoError(t, repo.MarkPaidSynced(ctx, o.ID, at.Add(time.Hour)))
	again, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, *loaded.PaidSyncedAt, *again.PaidSyncedAt, time.Millisecond)
}
