package services

import (
	"time"

	"livepulse-service/logger"
	"livepulse-service/models"
	"livepulse-service/simulation"
)

var _ simulation.Publisher = (*Broadcaster)(nil)

// Broadcaster 把模拟结果投递到总线，实现 simulation.Publisher
type Broadcaster struct {
	bus   MessageBus
	clock func() time.Time
}

// NewBroadcaster 创建广播器
func NewBroadcaster(bus MessageBus) *Broadcaster {
	return &Broadcaster{bus: bus, clock: time.Now}
}

// PublishSnapshot 广播直播间快照和全局统计
func (b *Broadcaster) PublishSnapshot(rooms []models.Room, stats models.GlobalStats) {
	now := b.clock()
	b.produce(BusMessage{Topic: TopicLiveRooms, Data: rooms, Timestamp: now})
	b.produce(BusMessage{Topic: TopicGlobalStats, Data: stats, Timestamp: now})
}

// PublishLog 广播单条 Agent 日志
func (b *Broadcaster) PublishLog(entry models.AgentLog) {
	b.produce(BusMessage{Topic: TopicAgentLog, Key: entry.RoomID, Data: entry, Timestamp: b.clock()})
}

func (b *Broadcaster) produce(msg BusMessage) {
	if err := b.bus.Produce(msg); err != nil {
		logger.Errorf("[Broadcaster] Failed to publish %s: %v", msg.Topic, err)
	}
}
