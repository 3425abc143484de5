package persistence

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormInventoryRepository_Apply(t *testing.T) {
	ctx := context.Background()

	t.Run("creates missing rows and accumulates deltas", func(t *testing.T) {
		repo := NewGormInventoryRepository(newSQLiteDB(t))
		productID := uuid.New()

		require.NoError(t, repo.Apply(ctx, inventory.Adjustment{ProductID: productID, QuantityDelta: 10}))
		require.NoError(t, repo.Apply(ctx, inventory.Adjustment{ProductID: productID, ReservedDelta: 3}))

		rec, err := repo.Find(ctx, productID, uuid.Nil)
		require.NoError(t, err)
		assert.Equal(t, 10, rec.Quantity)
		assert.Equal(t, 3, rec.Reserved)
		assert.Equal(t, 7, rec.Available())
	})

	t.Run("order lifecycle returns stock to its starting point", func(t *testing.T) {
		repo := NewGormInventoryRepository(newSQLiteDB(t))
		key := inventory.Key{ProductID: uuid.New(), VariantID: uuid.New()}
		require.NoError(t, repo.Apply(ctx, inventory.Adjustment{ProductID: key.ProductID, VariantID: key.VariantID, QuantityDelta: 20}))

		steps := []inventory.Adjustment{
			{ReservedDelta: 4},                     // reserve at checkout
			{QuantityDelta: -4, ReservedDelta: -4}, // commit at shipment
			{QuantityDelta: 4},                     // restore at refund
		}
		for _, step := range steps {
			step.ProductID, step.VariantID = key.ProductID, key.VariantID
			require.NoError(t, repo.Apply(ctx, step))
		}

		records, err := repo.FindMany(ctx, []inventory.Key{key})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, 20, records[0].Quantity)
		assert.Equal(t, 0, records[0].Reserved)
	})

	t.Run("rejects an adjustment without product before touching storage", func(t *testing.T) {
		repo := NewGormInventoryRepository(newSQLiteDB(t))
		good := inventory.Adjustment{ProductID: uuid.New(), QuantityDelta: 1}

		err := repo.Apply(ctx, good, inventory.Adjustment{QuantityDelta: 1})
		require.Error(t, err)

		_, err = repo.Find(ctx, good.ProductID, uuid.Nil)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInventoryRepository_Apply_SQLShape(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormInventoryRepository(db)

	productID := uuid.New()
	variantID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "inventory_records"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE "inventory_records" SET "quantity"=quantity + $1,"reserved"=reserved + $2,"updated_at"=$3 WHERE product_id = $4 AND variant_id = $5`)).
		WithArgs(int64(-2), int64(-2), sqlmock.AnyArg(), productID.String(), variantID.String()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Apply(context.Background(), inventory.Adjustment{
		ProductID:     productID,
		VariantID:     variantID,
		QuantityDelta: -2,
		ReservedDelta: -2,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInventoryRepository_SetQuantity(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInventoryRepository(newSQLiteDB(t))
	productID := uuid.New()

	tests := []struct {
		name        string
		quantity    int
		wantChanged bool
	}{
		{name: "creates the row", quantity: 5, wantChanged: true},
		{name: "same value is not a change", quantity: 5, wantChanged: false},
		{name: "new value overwrites", quantity: 8, wantChanged: true},
		{name: "zero is a real value", quantity: 0, wantChanged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := repo.SetQuantity(ctx, productID, uuid.Nil, tt.quantity)
			require.NoError(t, err)
			assert.Equal(t, tt.wantChanged, changed)

			rec, err := repo.Find(ctx, productID, uuid.Nil)
			require.NoError(t, err)
			assert.Equal(t, tt.quantity, rec.Quantity)
		})
	}
}

func TestGormInventoryRepository_SetQuantity_KeepsReserved(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInventoryRepository(newSQLiteDB(t))
	productID := uuid.New()

	require.NoError(t, repo.Apply(ctx, inventory.Adjustment{ProductID: productID, QuantityDelta: 10, ReservedDelta: 2}))
	changed, err := repo.SetQuantity(ctx, productID, uuid.Nil, 15)
	require.NoError(t, err)
	assert.True(t, changed)

	rec, err := repo.Find(ctx, productID, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, 15, rec.Quantity)
	assert.Equal(t, 2, rec.Reserved)
}

func TestGormInventoryRepository_FindMany(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInventoryRepository(newSQLiteDB(t))

	productID := uuid.New()
	small, large := uuid.New(), uuid.New()
	require.NoError(t, repo.Apply(ctx,
		inventory.Adjustment{ProductID: productID, VariantID: small, QuantityDelta: 1},
		inventory.Adjustment{ProductID: productID, VariantID: large, QuantityDelta: 2},
	))

	records, err := repo.FindMany(ctx, []inventory.Key{{ProductID: productID, VariantID: large}, {ProductID: uuid.New()}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, large, records[0].VariantID)

	none, err := repo.FindMany(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
