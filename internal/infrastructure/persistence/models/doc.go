// Package models contains GORM persistence models that map to database tables.
// Domain types stay free of ORM tags; each model converts with ToDomain/FromDomain.
//
//   - base.go: BaseModel and AggregateModel (optimistic version)
//   - catalog.go: products, images, categories, brands, reviews
//   - order.go: orders, order items, status audits, order number sequence
//   - identity.go: users and their address book
//   - setting.go: runtime settings
//   - outbox.go: transactional outbox entries
package models

// All returns every model in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&CategoryModel{},
		&BrandModel{},
		&ProductModel{},
		&ProductImageModel{},
		&ReviewModel{},
		&UserModel{},
		&UserAddressModel{},
		&OrderModel{},
		&OrderItemModel{},
		&OrderStatusAuditModel{},
		&OrderSequenceModel{},
		&SettingModel{},
		&OutboxEntryModel{},
	}
}
