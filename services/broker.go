package services

import (
	"errors"
	"time"
)

// 总线 Topic
const (
	TopicLiveRooms   = "live_rooms"
	TopicGlobalStats = "global_stats"
	TopicAgentLog    = "agent_log"
)

// AllTopics 所有广播 Topic
var AllTopics = []string{TopicLiveRooms, TopicGlobalStats, TopicAgentLog}

// ErrBusClosed 总线已关闭
var ErrBusClosed = errors.New("message bus closed")

// BusMessage 定义了在总线中传输的消息结构
type BusMessage struct {
	Topic     string
	Key       string // 直播间 ID, 快照消息为空
	Data      interface{}
	Timestamp time.Time
}

// MessageBus 定义了进程内广播总线的抽象接口
type MessageBus interface {
	// Produce 发送消息到指定的 Topic，不阻塞
	Produce(msg BusMessage) error
	// Consume 订阅一个或多个 Topic，返回一个消息通道
	Consume(name string, topics ...string) (<-chan BusMessage, error)
	// Close 关闭所有订阅通道
	Close() error
}
