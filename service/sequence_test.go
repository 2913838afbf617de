package service

import (
	"context"
	"testing"
	"time"

	"gatewaychat/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// collideMessages makes the next `times` message inserts race with a
// concurrent writer: right before gorm inserts the batch, a row is written
// at the batch's first sequence inside the same transaction.
func collideMessages(t *testing.T, db *gorm.DB, times int) *int {
	t.Helper()
	const name = "test:collide_messages"
	inserts := 0
	err := db.Callback().Create().Before("gorm:create").Register(name, func(tx *gorm.DB) {
		messages, ok := tx.Statement.Dest.(*[]model.Message)
		if !ok || len(*messages) == 0 {
			return
		}
		inserts++
		if inserts > times {
			return
		}
		first := (*messages)[0]
		err := tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO messages (chat_id, role, content, sequence, created_at) VALUES (?, ?, ?, ?, ?)",
			first.ChatID, model.RoleUser, "concurrent", first.Sequence, time.Now(),
		).Error
		assert.NoError(t, err)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Callback().Create().Remove(name) })
	return &inserts
}

func TestSaveRetriesSequenceCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.chats.SaveWithKey(ctx, "sk-1", SaveInput{UserMessage: "a", AssistantMessage: "b", Persist: true})
	require.NoError(t, err)

	inserts := collideMessages(t, f.db, 1)
	res, err := f.chats.SaveWithKey(ctx, "sk-1", SaveInput{ChatID: first.ChatID, UserMessage: "c", AssistantMessage: "d", Persist: true})
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Equal(t, first.ChatID, res.ChatID)
	assert.Equal(t, 2, *inserts)

	userID, err := f.credentials.Resolve(ctx, "sk-1")
	require.NoError(t, err)
	transcript, err := f.chats.Load(ctx, userID, first.ChatID)
	require.NoError(t, err)

	contents := make([]string, 0, len(transcript.Messages))
	for i, m := range transcript.Messages {
		assert.Equal(t, i+1, m.Sequence)
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, contents)
}

func TestSaveGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.chats.SaveWithKey(ctx, "sk-1", SaveInput{UserMessage: "a", Persist: true})
	require.NoError(t, err)

	inserts := collideMessages(t, f.db, maxAppendAttempts)
	_, err = f.chats.SaveWithKey(ctx, "sk-1", SaveInput{ChatID: first.ChatID, UserMessage: "b", Persist: true})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, maxAppendAttempts, *inserts)

	count := f.countRows(t, &model.Message{})
	assert.Equal(t, int64(1), count)
}
