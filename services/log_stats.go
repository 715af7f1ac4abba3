package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livepulse-service/logger"
	"livepulse-service/models"
)

// StatsReporter 接收周期统计
type StatsReporter interface {
	NotifyLogStats(ctx context.Context, stats map[string]int, total int, period string) error
}

// LogStatsTracker 按日志类型统计 AI 助手输出
type LogStatsTracker struct {
	mu           sync.Mutex
	stats        map[string]int
	totalCount   int
	lastReported time.Time
	reporter     StatsReporter
	interval     time.Duration
	firstReport  bool
	clock        func() time.Time
}

// NewLogStatsTracker 创建日志统计追踪器
func NewLogStatsTracker(reporter StatsReporter, interval time.Duration) *LogStatsTracker {
	return &LogStatsTracker{
		stats:        make(map[string]int),
		lastReported: time.Now(),
		reporter:     reporter,
		interval:     interval,
		firstReport:  true,
		clock:        time.Now,
	}
}

// Record 记录一条日志
func (t *LogStatsTracker) Record(actionType string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats[actionType]++
	t.totalCount++
}

// Snapshot 当前统计窗口
func (t *LogStatsTracker) Snapshot() (map[string]int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.stats))
	for k, v := range t.stats {
		out[k] = v
	}
	return out, t.totalCount
}

// CheckAndReport 到达间隔时发送统计
// 第一次立即报告（启动至今），之后每个间隔报告并重置窗口
func (t *LogStatsTracker) CheckAndReport(ctx context.Context) {
	t.mu.Lock()
	now := t.clock()
	elapsed := now.Sub(t.lastReported)
	if (!t.firstReport && elapsed < t.interval) || t.totalCount == 0 {
		t.mu.Unlock()
		return
	}

	statsCopy := make(map[string]int, len(t.stats))
	for k, v := range t.stats {
		statsCopy[k] = v
	}
	total := t.totalCount

	period := "启动至今"
	if !t.firstReport {
		period = fmt.Sprintf("过去 %.0f 分钟", elapsed.Minutes())
		t.stats = make(map[string]int)
		t.totalCount = 0
	}
	t.lastReported = now
	t.firstReport = false
	t.mu.Unlock()

	if err := t.reporter.NotifyLogStats(ctx, statsCopy, total, period); err != nil {
		logger.Errorf("[LogStats] Failed to send notification: %v", err)
	}
}

// Run 统计 agent_log 消息并每 30 秒检查一次是否需要报告
func (t *LogStatsTracker) Run(ctx context.Context, msgs <-chan BusMessage) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.CheckAndReport(ctx)
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if entry, ok := msg.Data.(models.AgentLog); ok {
				t.Record(entry.ActionType)
			}
		}
	}
}
