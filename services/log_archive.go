package services

import (
	"context"
	"database/sql"
	"time"

	"livepulse-service/logger"
	"livepulse-service/models"
)

// execer *sql.DB 的最小子集
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const insertAgentLog = `
	INSERT INTO agent_logs (id, room_id, room_name, action_type, message, impact, color, source, logged_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
`

// LogArchive 把 AI 助手日志写入 PostgreSQL
type LogArchive struct {
	db       execer
	timeout  time.Duration
	saved    uint64
	failures uint64
}

func NewLogArchive(db *sql.DB) *LogArchive {
	return newLogArchive(db)
}

func newLogArchive(db execer) *LogArchive {
	return &LogArchive{db: db, timeout: 5 * time.Second}
}

// Save 保存单条日志
func (a *LogArchive) Save(ctx context.Context, entry models.AgentLog) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	_, err := a.db.ExecContext(ctx, insertAgentLog,
		entry.ID,
		entry.RoomID,
		entry.RoomName,
		entry.ActionType,
		entry.Message,
		nullable(entry.Impact),
		entry.Color,
		nullable(entry.Source),
		entry.Timestamp,
	)
	return err
}

// Run 持续归档 agent_log 消息，直到 ctx 取消或通道关闭
func (a *LogArchive) Run(ctx context.Context, msgs <-chan BusMessage) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			entry, ok := msg.Data.(models.AgentLog)
			if !ok {
				continue
			}
			if err := a.Save(ctx, entry); err != nil {
				a.failures++
				if a.failures == 1 || a.failures%100 == 0 {
					logger.Errorf("[LogArchive] Failed to save log %s (%d failures): %v", entry.ID, a.failures, err)
				}
				continue
			}
			a.saved++
		}
	}
}

// Saved 已成功写入的条数
func (a *LogArchive) Saved() uint64 {
	return a.saved
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
