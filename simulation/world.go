package simulation

import (
	"sync"
	"time"

	"livepulse-service/models"
)

// DefaultLogHistorySize 日志历史保留条数
const DefaultLogHistorySize = 1000

// LogHistory 有界的追加式日志历史，超出容量时丢弃最旧的条目
type LogHistory struct {
	entries []models.AgentLog
	limit   int
}

// NewLogHistory 创建日志历史
func NewLogHistory(limit int) *LogHistory {
	if limit <= 0 {
		limit = DefaultLogHistorySize
	}
	return &LogHistory{limit: limit}
}

// Append 追加日志。底层切片涨到 2*limit 时才整体搬移一次最近 limit 条
func (h *LogHistory) Append(entry models.AgentLog) {
	if len(h.entries) >= 2*h.limit {
		kept := make([]models.AgentLog, h.limit, 2*h.limit)
		copy(kept, h.entries[len(h.entries)-h.limit:])
		h.entries = kept
	}
	h.entries = append(h.entries, entry)
}

// window 保留的最近 limit 条
func (h *LogHistory) window() []models.AgentLog {
	if over := len(h.entries) - h.limit; over > 0 {
		return h.entries[over:]
	}
	return h.entries
}

// Last 返回最近 n 条日志（按时间正序）
func (h *LogHistory) Last(n int) []models.AgentLog {
	kept := h.window()
	if n <= 0 || n > len(kept) {
		n = len(kept)
	}
	out := make([]models.AgentLog, n)
	copy(out, kept[len(kept)-n:])
	return out
}

// Len 当前保留的条数
func (h *LogHistory) Len() int {
	return len(h.window())
}

// Bootstrap 新订阅者的初始快照
type Bootstrap struct {
	Rooms []models.Room
	Stats models.GlobalStats
	Logs  []models.AgentLog
}

// World 模拟的内存状态，所有读写都经过同一把锁
type World struct {
	mu    sync.Mutex
	rooms []*models.Room
	index map[string]*models.Room
	stats models.GlobalStats
	logs  *LogHistory

	// pubMu 保证快照按修改顺序发布
	pubMu sync.Mutex
}

// NewWorld 用生成好的直播间创建世界状态
func NewWorld(rooms []*models.Room, startTime time.Time, historySize int) *World {
	w := &World{
		rooms: rooms,
		index: make(map[string]*models.Room, len(rooms)),
		logs:  NewLogHistory(historySize),
		stats: models.GlobalStats{
			ActiveRooms:     len(rooms),
			InventoryHealth: models.HealthGreen,
			StartTime:       startTime,
		},
	}
	for _, r := range rooms {
		w.index[r.ID] = r
		r.RefreshHealth()
	}
	w.stats.RefreshInventoryHealth(rooms)
	return w
}

// mutate 在临界区内执行修改
func (w *World) mutate(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn()
}

// commit 在临界区内执行修改，返回的 publish 在释放世界锁后执行。
// 释放世界锁之前先拿到发布锁，发布顺序与修改顺序一致
func (w *World) commit(fn func() (publish func())) {
	w.mu.Lock()
	locked := true
	defer func() {
		if locked {
			w.mu.Unlock()
		}
	}()

	publish := fn()
	if publish == nil {
		return
	}

	w.pubMu.Lock()
	defer w.pubMu.Unlock()
	w.mu.Unlock()
	locked = false

	publish()
}

func (w *World) snapshotLocked() []models.Room {
	out := make([]models.Room, 0, len(w.rooms))
	for _, r := range w.rooms {
		out = append(out, r.Clone())
	}
	return out
}

// Rooms 所有直播间的副本
func (w *World) Rooms() []models.Room {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Room 单个直播间的副本
func (w *World) Room(id string) (models.Room, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.index[id]
	if !ok {
		return models.Room{}, false
	}
	return r.Clone(), true
}

// RoomIDs 按顺序返回直播间 ID
func (w *World) RoomIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.rooms))
	for _, r := range w.rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

// Stats 全局统计
func (w *World) Stats() models.GlobalStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Logs 最近 limit 条日志
func (w *World) Logs(limit int) []models.AgentLog {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.logs.Last(limit)
}

// Bootstrap 一次加锁读取直播间、统计和最近日志
func (w *World) Bootstrap(logLimit int) Bootstrap {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Bootstrap{
		Rooms: w.snapshotLocked(),
		Stats: w.stats,
		Logs:  w.logs.Last(logLimit),
	}
}
