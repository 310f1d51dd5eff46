package checkin

import (
	"fmt"

	"gorm.io/gorm"
)

// RunMigrations performs auto-migration for the check_instances table
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(&CheckInstance{}); err != nil {
		return fmt.Errorf("failed to auto-migrate check instance tables: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_check_instances_user_created ON check_instances(user_id, created_at DESC, seq DESC)",
		"CREATE INDEX IF NOT EXISTS idx_check_instances_user_status ON check_instances(user_id, status)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create check instance index: %w", err)
		}
	}

	return nil
}

// DropTables drops the check instance table (for testing cleanup)
func DropTables(db *gorm.DB) error {
	if err := db.Exec("DROP TABLE IF EXISTS check_instances CASCADE").Error; err != nil {
		return fmt.Errorf("failed to drop table check_instances: %w", err)
	}
	return nil
}
