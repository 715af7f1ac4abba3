package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	return db, nil
}

// Migrations 按顺序执行的建表语句
var Migrations = []string{
	// AI 助手日志归档表
	`CREATE TABLE IF NOT EXISTS agent_logs (
		id UUID PRIMARY KEY,
		room_id VARCHAR(50) NOT NULL,
		room_name VARCHAR(100) NOT NULL,
		action_type VARCHAR(50) NOT NULL,
		message TEXT NOT NULL,
		impact TEXT,
		color VARCHAR(20) NOT NULL,
		source VARCHAR(50),
		logged_at TIMESTAMP NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_logs_room_id ON agent_logs(room_id)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_logs_action_type ON agent_logs(action_type)`,
	`CREATE INDEX IF NOT EXISTS idx_agent_logs_logged_at ON agent_logs(logged_at)`,
}

// Migrate 运行数据库迁移
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, migration := range Migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
