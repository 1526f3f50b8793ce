package models

// All lists every persisted model, in dependency order, for AutoMigrate in
// tests and local bootstraps.
func All() []any {
	return []any{
		&Item{},
		&Cart{},
		&CartItem{},
		&PurchaseRecord{},
	}
}
