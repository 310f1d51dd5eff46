package registry

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations performs auto-migration for the users and contacts tables
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Contact{}); err != nil {
		return fmt.Errorf("failed to auto-migrate registry tables: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_active_hour ON users(is_active, check_hour)",
		"CREATE INDEX IF NOT EXISTS idx_contacts_user_created ON contacts(user_id, created_at)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create registry index: %w", err)
		}
	}

	return nil
}

// DropTables drops the registry tables (for testing cleanup)
func DropTables(db *gorm.DB) error {
	for _, table := range []string{"contacts", "users"} {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}
