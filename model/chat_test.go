package model

import (
	"context"
	"testing"
	"time"

	"gatewaychat/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := platform.OpenMemoryDB()
	require.NoError(t, err)
	require.NoError(t, InstallDB(db))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, hash string) *User {
	t.Helper()
	user, err := UpsertUserByHash(context.Background(), db, hash, time.Now())
	require.NoError(t, err)
	return user
}

func TestUpsertUserByHash(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	first, err := UpsertUserByHash(ctx, db, "hash-a", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	later := time.Now()
	again, err := UpsertUserByHash(ctx, db, "hash-a", later)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.WithinDuration(t, later, again.LastActiveAt, time.Second)

	count, err := countUsers(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	missing, err := GetUserByHash(ctx, db, "hash-b")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestChatDefaultsAndOwnership(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")

	chat := &Chat{UserID: alice.ID}
	require.NoError(t, CreateChat(ctx, db, chat))
	assert.Len(t, chat.ID, 36)
	assert.Equal(t, DefaultChatTitle, chat.Title)

	got, err := GetOwnedChat(ctx, db, alice.ID, chat.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	got, err = GetOwnedChat(ctx, db, bob.ID, chat.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSequenceAndUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db, "u")
	chat := &Chat{UserID: user.ID}
	require.NoError(t, CreateChat(ctx, db, chat))

	next, err := NextSequence(ctx, db, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	require.NoError(t, CreateMessages(ctx, db, []Message{
		{ChatID: chat.ID, Role: RoleUser, Content: "Hi", Sequence: 1},
		{ChatID: chat.ID, Role: RoleAssistant, Content: "Hello!", Sequence: 2},
	}))

	next, err = NextSequence(ctx, db, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, next)

	err = CreateMessages(ctx, db, []Message{{ChatID: chat.ID, Role: RoleUser, Content: "dup", Sequence: 2}})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	messages, err := ListMessages(ctx, db, chat.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Hi", messages[0].Content)
	assert.Equal(t, RoleAssistant, messages[1].Role)
}

func TestListChatsOrderAndArchive(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db, "u")
	base := time.Now().Add(-time.Hour)

	older := &Chat{UserID: user.ID, Title: "older", CreatedAt: base, UpdatedAt: base}
	newer := &Chat{UserID: user.ID, Title: "newer", CreatedAt: base, UpdatedAt: base.Add(time.Minute)}
	require.NoError(t, CreateChat(ctx, db, older))
	require.NoError(t, CreateChat(ctx, db, newer))

	chats, err := ListChats(ctx, db, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "newer", chats[0].Title)

	require.NoError(t, TouchChat(ctx, db, older.ID, base.Add(2*time.Minute)))
	chats, err = ListChats(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "older", chats[0].Title)

	ok, err := ArchiveChat(ctx, db, user.ID, older.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	chats, err = ListChats(ctx, db, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "newer", chats[0].Title)

	ok, err = ArchiveChat(ctx, db, user.ID+100, newer.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArchiveChatsIdleSince(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db, "u")
	now := time.Now()

	stale := &Chat{UserID: user.ID, CreatedAt: now.Add(-72 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour)}
	fresh := &Chat{UserID: user.ID, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, CreateChat(ctx, db, stale))
	require.NoError(t, CreateChat(ctx, db, fresh))

	n, err := ArchiveChatsIdleSince(ctx, db, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	chats, err := ListChats(ctx, db, user.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, fresh.ID, chats[0].ID)
}

func TestDeleteChatRemovesMessages(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	owner := newTestUser(t, db, "owner")
	other := newTestUser(t, db, "other")

	chat := &Chat{UserID: owner.ID}
	require.NoError(t, CreateChat(ctx, db, chat))
	require.NoError(t, CreateMessages(ctx, db, []Message{
		{ChatID: chat.ID, Role: RoleUser, Content: "a", Sequence: 1},
		{ChatID: chat.ID, Role: RoleAssistant, Content: "b", Sequence: 2},
	}))

	deleted, err := DeleteChat(ctx, db, other.ID, chat.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	deleted, err = DeleteChat(ctx, db, owner.ID, chat.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	count, err := countMessages(ctx, db, chat.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := GetOwnedChat(ctx, db, owner.ID, chat.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAutomationSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	user := newTestUser(t, db, "u")

	got, err := GetAutomationSettings(ctx, db, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, UpsertAutomationSettings(ctx, db, &AutomationSettings{UserID: user.ID, IsEnabled: true, SessionDuration: 86400}))
	require.NoError(t, UpsertAutomationSettings(ctx, db, &AutomationSettings{UserID: user.ID, IsEnabled: false, SessionDuration: 600}))

	got, err = GetAutomationSettings(ctx, db, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsEnabled)
	assert.Equal(t, 600, got.SessionDuration)

	var rows int64
	require.NoError(t, db.Model(&AutomationSettings{}).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}

func countUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&User{}).Count(&count).Error
	return count, err
}

func countMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&Message{}).Where("chat_id = ?", chatID).Count(&count).Error
	return count, err
}
