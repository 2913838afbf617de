package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// User 表示一个 API Key 对应的用户。api_key_hash 是唯一的外部身份。
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	APIKeyHash   string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	LastActiveAt time.Time `json:"last_active_at"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// GetUserByHash returns nil, nil when no user owns the hash.
func GetUserByHash(ctx context.Context, db *gorm.DB, hash string) (*User, error) {
	var user User
	if err := db.WithContext(ctx).Where("api_key_hash = ?", hash).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &user, nil
}

// UpsertUserByHash inserts a user for hash, or touches last_active_at when
// one exists. The unique index on api_key_hash arbitrates concurrent first
// use.
func UpsertUserByHash(ctx context.Context, db *gorm.DB, hash string, now time.Time) (*User, error) {
	user := &User{APIKeyHash: hash, LastActiveAt: now}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "api_key_hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"last_active_at": now}),
	}).Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// The id is not reliably returned on the conflict branch for every driver.
	stored, err := GetUserByHash(ctx, db, hash)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("user vanished after upsert")
	}
	return stored, nil
}
