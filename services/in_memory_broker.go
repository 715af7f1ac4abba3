package services

import (
	"sync"
	"sync/atomic"

	"livepulse-service/logger"
)

// DefaultConsumerBuffer 每个订阅者的缓冲区大小
const DefaultConsumerBuffer = 256

type busConsumer struct {
	name    string
	ch      chan BusMessage
	dropped atomic.Uint64
}

// InMemoryBus 是 MessageBus 的内存实现，向每个订阅者扇出消息。
// 订阅者缓冲区满时直接丢弃，生产者永远不会被阻塞。
type InMemoryBus struct {
	// 存储每个 Topic 对应的消费者列表
	consumers map[string][]*busConsumer
	all       []*busConsumer
	buffer    int
	closed    bool
	mu        sync.RWMutex
}

// NewInMemoryBus 创建 InMemoryBus 实例
func NewInMemoryBus(buffer int) *InMemoryBus {
	if buffer <= 0 {
		buffer = DefaultConsumerBuffer
	}
	return &InMemoryBus{
		consumers: make(map[string][]*busConsumer),
		buffer:    buffer,
	}
}

// Produce 实现 MessageBus 接口
func (b *InMemoryBus) Produce(msg BusMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for _, c := range b.consumers[msg.Topic] {
		// 使用 select 避免阻塞，如果通道满了则丢弃
		select {
		case c.ch <- msg:
		default:
			if n := c.dropped.Add(1); n == 1 || n%100 == 0 {
				logger.Printf("[Bus] ⚠️ Consumer %s channel full, dropped %d messages so far", c.name, n)
			}
		}
	}

	return nil
}

// Consume 实现 MessageBus 接口
func (b *InMemoryBus) Consume(name string, topics ...string) (<-chan BusMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	c := &busConsumer{name: name, ch: make(chan BusMessage, b.buffer)}
	for _, topic := range topics {
		b.consumers[topic] = append(b.consumers[topic], c)
	}
	b.all = append(b.all, c)

	logger.Printf("[Bus] Consumer %s subscribed to %v", name, topics)

	return c.ch, nil
}

// Dropped 返回某个订阅者被丢弃的消息数
func (b *InMemoryBus) Dropped(name string) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var total uint64
	for _, c := range b.all {
		if c.name == name {
			total += c.dropped.Load()
		}
	}
	return total
}

// Close 实现 MessageBus 接口
func (b *InMemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	// 关闭所有消费者通道
	for _, c := range b.all {
		close(c.ch)
	}
	b.consumers = make(map[string][]*busConsumer)
	b.all = nil

	logger.Println("[Bus] Closed all channels.")
	return nil
}
