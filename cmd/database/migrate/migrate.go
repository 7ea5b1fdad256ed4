package migration

import (
	"fmt"

	"splay/entities"

	"gorm.io/gorm"
)

// Entities lists every model in dependency order.
func Entities() []any {
	return []any{
		&entities.User{},
		&entities.Subscription{},
		&entities.Transaction{},
		&entities.Product{},
		&entities.Scan{},
		&entities.DetectedItem{},
		&entities.ItemMatch{},
	}
}

func Migrate(db *gorm.DB) error {
	for _, model := range Entities() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrating %T: %w", model, err)
		}
	}
	return nil
}
