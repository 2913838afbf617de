package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gatewaychat/model"
	"gatewaychat/platform"

	"gorm.io/gorm"
)

const (
	maxAppendAttempts = 3
	maxTitleRunes     = 255
	derivedTitleRunes = 30
)

type SaveInput struct {
	ChatID           string
	Title            string
	UserMessage      string
	AssistantMessage string
	Persist          bool
}

type SaveResult struct {
	Saved  bool
	ChatID string
}

type ChatSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ChatHeader struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type MessageView struct {
	ID        uint              `json:"id"`
	Role      model.MessageRole `json:"role"`
	Content   string            `json:"content"`
	Sequence  int               `json:"sequence"`
	CreatedAt time.Time         `json:"createdAt"`
}

type ChatTranscript struct {
	Chat     ChatHeader    `json:"chat"`
	Messages []MessageView `json:"messages"`
}

type ChatService struct {
	db          *gorm.DB
	credentials *CredentialService
	now         func() time.Time
}

func NewChatService(db *gorm.DB, credentials *CredentialService) *ChatService {
	return &ChatService{db: db, credentials: credentials, now: time.Now}
}

// SaveWithKey is the /chat/save flow: opt-out and validation are checked
// before the user is resolved or created, so neither touches storage.
func (s *ChatService) SaveWithKey(ctx context.Context, apiKey string, in SaveInput) (*SaveResult, error) {
	if apiKey == "" {
		return nil, ErrMissingCredential
	}
	if !in.Persist {
		return &SaveResult{Saved: false}, nil
	}
	if strings.TrimSpace(in.UserMessage) == "" {
		return nil, validationError("User message is required")
	}
	userID, err := s.credentials.EnsureUser(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, userID, in)
}

// Save appends one turn to a chat owned by userID, creating the chat when
// in.ChatID is empty. The next sequence is read and the messages written in
// one transaction; a collision on (chat_id, sequence) from a concurrent save
// is retried.
func (s *ChatService) Save(ctx context.Context, userID uint, in SaveInput) (*SaveResult, error) {
	if !in.Persist {
		return &SaveResult{Saved: false}, nil
	}
	if strings.TrimSpace(in.UserMessage) == "" {
		return nil, validationError("User message is required")
	}

	var chatID string
	var err error
	for attempt := 1; ; attempt++ {
		chatID, err = s.appendTurn(ctx, userID, in)
		if err == nil {
			break
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) && attempt < maxAppendAttempts {
			platform.Logger.Warnf("sequence collision on chat %s, retrying (attempt %d)", in.ChatID, attempt)
			continue
		}
		return nil, err
	}
	return &SaveResult{Saved: true, ChatID: chatID}, nil
}

func (s *ChatService) appendTurn(ctx context.Context, userID uint, in SaveInput) (string, error) {
	var chatID string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if in.ChatID != "" {
			chat, err := model.GetOwnedChat(ctx, tx, userID, in.ChatID)
			if err != nil {
				return err
			}
			if chat == nil {
				return ErrNotFound
			}
			if err := model.TouchChat(ctx, tx, chat.ID, now); err != nil {
				return err
			}
			chatID = chat.ID
		} else {
			chat := &model.Chat{
				UserID:    userID,
				Title:     normalizeTitle(in.Title),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := model.CreateChat(ctx, tx, chat); err != nil {
				return err
			}
			chatID = chat.ID
		}

		next, err := model.NextSequence(ctx, tx, chatID)
		if err != nil {
			return err
		}
		messages := []model.Message{{
			ChatID:    chatID,
			Role:      model.RoleUser,
			Content:   in.UserMessage,
			Sequence:  next,
			CreatedAt: now,
		}}
		if in.AssistantMessage != "" {
			messages = append(messages, model.Message{
				ChatID:    chatID,
				Role:      model.RoleAssistant,
				Content:   in.AssistantMessage,
				Sequence:  next + 1,
				CreatedAt: now,
			})
		}
		return model.CreateMessages(ctx, tx, messages)
	})
	return chatID, err
}

func (s *ChatService) List(ctx context.Context, userID uint) ([]ChatSummary, error) {
	chats, err := model.ListChats(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summaries = append(summaries, ChatSummary{
			ID:        chat.ID,
			Title:     chat.Title,
			CreatedAt: chat.CreatedAt,
			UpdatedAt: chat.UpdatedAt,
		})
	}
	return summaries, nil
}

func (s *ChatService) Load(ctx context.Context, userID uint, chatID string) (*ChatTranscript, error) {
	if chatID == "" {
		return nil, validationError("Chat ID is required")
	}
	chat, err := model.GetOwnedChat(ctx, s.db, userID, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrNotFound
	}
	messages, err := model.ListMessages(ctx, s.db, chatID)
	if err != nil {
		return nil, err
	}

	transcript := &ChatTranscript{
		Chat:     ChatHeader{ID: chat.ID, Title: chat.Title},
		Messages: make([]MessageView, 0, len(messages)),
	}
	for _, m := range messages {
		transcript.Messages = append(transcript.Messages, MessageView{
			ID:        m.ID,
			Role:      m.Role,
			Content:   m.Content,
			Sequence:  m.Sequence,
			CreatedAt: m.CreatedAt,
		})
	}
	return transcript, nil
}

func (s *ChatService) Delete(ctx context.Context, userID uint, chatID string) error {
	if chatID == "" {
		return validationError("Chat ID is required")
	}
	deleted, err := model.DeleteChat(ctx, s.db, userID, chatID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *ChatService) Archive(ctx context.Context, userID uint, chatID string) error {
	if chatID == "" {
		return validationError("Chat ID is required")
	}
	archived, err := model.ArchiveChat(ctx, s.db, userID, chatID)
	if err != nil {
		return err
	}
	if !archived {
		return ErrNotFound
	}
	return nil
}

// ArchiveIdle archives every chat not updated since before.
func (s *ChatService) ArchiveIdle(ctx context.Context, before time.Time) (int64, error) {
	return model.ArchiveChatsIdleSince(ctx, s.db, before)
}

// DeriveTitle names a new chat after the first prompt: its first 30
// characters, with "..." appended when it was cut.
func DeriveTitle(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if utf8.RuneCountInString(prompt) <= derivedTitleRunes {
		return prompt
	}
	return string([]rune(prompt)[:derivedTitleRunes]) + "..."
}

func normalizeTitle(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return model.DefaultChatTitle
	}
	if utf8.RuneCountInString(title) > maxTitleRunes {
		title = string([]rune(title)[:maxTitleRunes])
	}
	return title
}
