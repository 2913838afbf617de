package model

import "gorm.io/gorm"

// InstallDB creates or updates every table the gateway uses.
func InstallDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Chat{},
		&Message{},
		&AutomationSettings{})
}
