package inventory

import (
	"context"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/domain/inventory"
	"github.com/erp/ordersync/internal/domain/order"
)

// TransactionScope provides transactional access to the repositories an order transition touches.
// When a function is executed within a transaction scope, all repository operations
// will be part of the same database transaction and will be committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to repositories within a transaction.
// All repositories returned share the same underlying database transaction.
//
// A status change and its stock effect are written together, and follow-up
// sync jobs are enqueued in the same transaction so that a committed
// transition always has its ERP push queued.
type TransactionalRepositories interface {
	// OrderRepo returns the order repository scoped to the current transaction
	OrderRepo() order.Repository
	// InventoryRepo returns the inventory repository scoped to the current transaction
	InventoryRepo() inventory.Repository
	// JobRepo returns the sync job queue scoped to the current transaction
	JobRepo() integration.SyncJobRepository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing or when transaction support is not required.
type NoOpTransactionScope struct {
	orderRepo     order.Repository
	inventoryRepo inventory.Repository
	jobRepo       integration.SyncJobRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	orderRepo order.Repository,
	inventoryRepo inventory.Repository,
	jobRepo integration.SyncJobRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		jobRepo:       jobRepo,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// OrderRepo returns the order repository.
func (s *NoOpTransactionScope) OrderRepo() order.Repository {
	return s.orderRepo
}

// InventoryRepo returns the inventory repository.
func (s *NoOpTransactionScope) InventoryRepo() inventory.Repository {
	return s.inventoryRepo
}

// JobRepo returns the sync job repository.
func (s *NoOpTransactionScope) JobRepo() integration.SyncJobRepository {
	return s.jobRepo
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
