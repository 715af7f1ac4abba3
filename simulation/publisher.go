package simulation

//go:generate go tool mockgen -destination=./mocks/publisher_mock.go -package=mocks . Publisher

import "livepulse-service/models"

// Publisher 广播网关。实现必须是非阻塞的：慢订阅者只能丢消息，不能拖慢模拟。
type Publisher interface {
	PublishSnapshot(rooms []models.Room, stats models.GlobalStats)
	PublishLog(entry models.AgentLog)
}

// NopPublisher 丢弃所有消息
type NopPublisher struct{}

func (NopPublisher) PublishSnapshot([]models.Room, models.GlobalStats) {}

func (NopPublisher) PublishLog(models.AgentLog) {}
