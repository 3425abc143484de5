// Package integration contains the ERP integration bounded context.
// It models the connection to the external order-management system and the
// bookkeeping needed to keep local orders and stock consistent with it.
//
// Key concepts:
//   - ErpGateway: Port interface for the ERP remote procedure endpoint
//   - ErpConfiguration: Stored connection with an encrypted API token
//   - WarehouseRouter: Pure mapping from product metadata to an ERP inventory
//   - SyncLog: One row per sync run, doubling as the per-type run lock
//   - SyncJob: Durable work item consumed by the sync worker
//   - StatusMapping: Finite ERP status -> local order status table
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
