package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

const DefaultChatTitle = "New Chat"

type Chat struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index:idx_user_archived_updated" json:"-"`
	Title      string    `gorm:"type:varchar(255);not null" json:"title"`
	IsArchived bool      `gorm:"not null;default:false;index:idx_user_archived_updated" json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `gorm:"index:idx_user_archived_updated" json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Message 一旦写入就不再修改。sequence 在同一个 chat 内唯一且连续。
type Message struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID    string      `gorm:"type:char(36);not null;uniqueIndex:idx_chat_sequence,priority:1" json:"-"`
	Role      MessageRole `gorm:"type:varchar(16);not null" json:"role"`
	Content   string      `gorm:"type:text;not null" json:"content"`
	Sequence  int         `gorm:"not null;uniqueIndex:idx_chat_sequence,priority:2" json:"sequence"`
	CreatedAt time.Time   `json:"createdAt"`

	Chat *Chat `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Title == "" {
		c.Title = DefaultChatTitle
	}
	return nil
}

// GetOwnedChat returns nil, nil when the chat does not exist or belongs to
// another user. Callers must not be able to tell the two apart.
func GetOwnedChat(ctx context.Context, db *gorm.DB, userID uint, chatID string) (*Chat, error) {
	var chat Chat
	err := db.WithContext(ctx).Where("id = ? AND user_id = ?", chatID, userID).First(&chat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	return &chat, nil
}

func CreateChat(ctx context.Context, db *gorm.DB, chat *Chat) error {
	if err := db.WithContext(ctx).Create(chat).Error; err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	return nil
}

func TouchChat(ctx context.Context, db *gorm.DB, chatID string, now time.Time) error {
	err := db.WithContext(ctx).Model(&Chat{}).Where("id = ?", chatID).UpdateColumn("updated_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to update chat updated_at: %w", err)
	}
	return nil
}

// NextSequence returns 1 + the highest sequence stored for chatID, or 1 for
// an empty chat.
func NextSequence(ctx context.Context, db *gorm.DB, chatID string) (int, error) {
	var latest sql.NullInt64
	err := db.WithContext(ctx).Model(&Message{}).
		Where("chat_id = ?", chatID).
		Select("MAX(sequence)").
		Row().Scan(&latest)
	if err != nil {
		return 0, fmt.Errorf("failed to read latest sequence: %w", err)
	}
	if !latest.Valid {
		return 1, nil
	}
	return int(latest.Int64) + 1, nil
}

// CreateMessages inserts messages as given; sequences must already be set.
func CreateMessages(ctx context.Context, db *gorm.DB, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := db.WithContext(ctx).Create(&messages).Error; err != nil {
		return fmt.Errorf("failed to create messages: %w", err)
	}
	return nil
}

// ListChats returns the user's non-archived chats, most recently active first.
func ListChats(ctx context.Context, db *gorm.DB, userID uint) ([]Chat, error) {
	var chats []Chat
	err := db.WithContext(ctx).
		Select("id", "title", "created_at", "updated_at").
		Where("user_id = ? AND is_archived = ?", userID, false).
		Order("updated_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

// ListMessages returns the chat's messages in conversation order.
func ListMessages(ctx context.Context, db *gorm.DB, chatID string) ([]Message, error) {
	var messages []Message
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("sequence ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// DeleteChat removes an owned chat and its messages in one transaction.
// deleted is false when the chat is missing or not owned.
func DeleteChat(ctx context.Context, db *gorm.DB, userID uint, chatID string) (deleted bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chat, err := GetOwnedChat(ctx, tx, userID, chatID)
		if err != nil || chat == nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&Message{}).Error; err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		if err := tx.Delete(&Chat{}, "id = ?", chatID).Error; err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// ArchiveChat hides an owned chat from listings without removing it.
// found is false when the chat is missing or not owned.
func ArchiveChat(ctx context.Context, db *gorm.DB, userID uint, chatID string) (found bool, err error) {
	chat, err := GetOwnedChat(ctx, db, userID, chatID)
	if err != nil || chat == nil {
		return false, err
	}
	err = db.WithContext(ctx).Model(&Chat{}).Where("id = ?", chat.ID).UpdateColumn("is_archived", true).Error
	if err != nil {
		return false, fmt.Errorf("failed to archive chat: %w", err)
	}
	return true, nil
}

// ArchiveChatsIdleSince archives every active chat last updated before the
// given time and reports how many were archived.
func ArchiveChatsIdleSince(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	result := db.WithContext(ctx).Model(&Chat{}).
		Where("is_archived = ? AND updated_at < ?", false, before).
		UpdateColumn("is_archived", true)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to archive idle chats: %w", result.Error)
	}
	return result.RowsAffected, nil
}
