// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: Base persistence models (BaseModel, AggregateModel)
//   - order.go: Orders, order lines and status history
//   - inventory.go: Per-variant stock records
//   - catalog.go: Products, variants and categories mirrored from the ERP
//   - integration.go: ERP configurations, sync logs and the sync job queue
//
// AllModels lists every model for AutoMigrate in tests; production schemas come from
// the SQL migrations.
package models
