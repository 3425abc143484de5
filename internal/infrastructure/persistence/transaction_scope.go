package persistence

import (
	"context"

	appinv "github.com/erp/ordersync/internal/application/inventory"
	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/order"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormTransactionalRepositories{tx: tx}
		return fn(repos)
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// OrderRepo returns the order repository scoped to the current transaction.
func (r *gormTransactionalRepositories) OrderRepo() order.Repository {
	return NewGormOrderRepository(r.tx)
}

// InventoryRepo returns the inventory repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InventoryRepo() inventory.Repository {
	return NewGormInventoryRepository(r.tx)
}

// JobRepo returns the sync job queue scoped to the current transaction.
func (r *gormTransactionalRepositories) JobRepo() integration.SyncJobRepository {
	return NewGormSyncJobRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
