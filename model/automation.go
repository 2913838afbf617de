package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutomationSettings is a per-user singleton; each write replaces the last.
type AutomationSettings struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID          uint      `gorm:"not null;uniqueIndex" json:"-"`
	IsEnabled       bool      `gorm:"not null" json:"is_enabled"`
	SessionDuration int       `gorm:"not null" json:"session_duration"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// GetAutomationSettings returns nil, nil when the user never stored settings.
func GetAutomationSettings(ctx context.Context, db *gorm.DB, userID uint) (*AutomationSettings, error) {
	var settings AutomationSettings
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &settings, nil
}

// UpsertAutomationSettings writes settings keyed by user_id, last writer wins.
func UpsertAutomationSettings(ctx context.Context, db *gorm.DB, settings *AutomationSettings) error {
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_enabled", "session_duration", "updated_at"}),
	}).Create(settings).Error
	if err != nil {
		return fmt.Errorf("failed to save automation settings: %w", err)
	}
	return nil
}
