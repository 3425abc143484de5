package models

// AllModels returns every persistence model, parents before children
func AllModels() []any {
	return []any{
		&ErpConfigurationModel{},
		&CategoryModel{},
		&ProductModel{},
		&ProductVariantModel{},
		&InventoryRecordModel{},
		&OrderModel{},
		&OrderLineModel{},
		&OrderStatusHistoryModel{},
		&SyncLogModel{},
		&SyncJobModel{},
	}
}
