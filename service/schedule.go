package service

import (
	"context"
	"time"

	"gatewaychat/platform"

	"github.com/robfig/cron/v3"
)

// RetentionTask archives chats idle for longer than a number of days.
type RetentionTask struct {
	chats *ChatService
	days  int
	now   func() time.Time
}

func NewRetentionTask(chats *ChatService, days int) *RetentionTask {
	return &RetentionTask{chats: chats, days: days, now: time.Now}
}

// Run performs one sweep and returns how many chats were archived.
func (t *RetentionTask) Run(ctx context.Context) (int64, error) {
	logger := platform.Logger
	logger.Infof("[%s] Start scheduled task ArchiveIdleChats", "scheduled task")
	startTime := t.now()

	before := startTime.Add(-time.Duration(t.days) * 24 * time.Hour)
	archived, err := t.chats.ArchiveIdle(ctx, before)
	if err != nil {
		logger.Warnf("[%s] archive idle chats error, %s", "scheduled task", err)
		return 0, err
	}

	logger.Infof("[%s] Finished scheduled task ArchiveIdleChats, archived %d chats in %v", "scheduled task", archived, time.Since(startTime))
	return archived, nil
}

// Schedule registers the sweep on c. A non-positive retention disables it.
func (t *RetentionTask) Schedule(c *cron.Cron, spec string) (cron.EntryID, bool, error) {
	if t.days <= 0 {
		return 0, false, nil
	}
	id, err := c.AddFunc(spec, func() {
		_, _ = t.Run(context.Background())
	})
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
