package service

import (
	"context"

	"gatewaychat/model"

	"gorm.io/gorm"
)

// DefaultSessionDuration is reported for users who never stored settings.
const DefaultSessionDuration = 86400

type AutomationSettings struct {
	IsEnabled       bool `json:"is_enabled"`
	SessionDuration int  `json:"session_duration"`
}

type AutomationService struct {
	db *gorm.DB
}

func NewAutomationService(db *gorm.DB) *AutomationService {
	return &AutomationService{db: db}
}

// Get returns the stored settings, or disabled defaults when none exist.
// Defaults are not persisted.
func (s *AutomationService) Get(ctx context.Context, userID uint) (*AutomationSettings, error) {
	stored, err := model.GetAutomationSettings(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return &AutomationSettings{IsEnabled: false, SessionDuration: DefaultSessionDuration}, nil
	}
	return &AutomationSettings{IsEnabled: stored.IsEnabled, SessionDuration: stored.SessionDuration}, nil
}

// Put overwrites the user's settings. session_duration must be positive.
func (s *AutomationService) Put(ctx context.Context, userID uint, in AutomationSettings) (*AutomationSettings, error) {
	if in.SessionDuration <= 0 {
		return nil, validationError("session_duration must be greater than 0")
	}
	record := &model.AutomationSettings{
		UserID:          userID,
		IsEnabled:       in.IsEnabled,
		SessionDuration: in.SessionDuration,
	}
	if err := model.UpsertAutomationSettings(ctx, s.db, record); err != nil {
		return nil, err
	}
	return &AutomationSettings{IsEnabled: record.IsEnabled, SessionDuration: record.SessionDuration}, nil
}
