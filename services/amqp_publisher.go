package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"livepulse-service/logger"
	"livepulse-service/models"
)

// ReconnectConfig 重连配置
type ReconnectConfig struct {
	InitialDelay  time.Duration // 初始延迟
	MaxDelay      time.Duration // 最大延迟
	BackoffFactor float64       // 退避因子
}

// DefaultReconnectConfig 默认重连配置
func DefaultReconnectConfig() *ReconnectConfig {
	return &ReconnectConfig{
		InitialDelay:  1 * time.Second,  // 1秒
		MaxDelay:      60 * time.Second, // 60秒
		BackoffFactor: 2.0,              // 指数退避
	}
}

// amqpSession 一次已建立的 AMQP 连接与通道
type amqpSession interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type channelSession struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

func (s *channelSession) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return s.channel.Publish(exchange, key, mandatory, immediate, msg)
}

func (s *channelSession) Close() error {
	s.channel.Close()
	return s.conn.Close()
}

// AMQPPublisher 把总线上的消息转发到 AMQP topic exchange
type AMQPPublisher struct {
	url       string
	exchange  string
	reconnect *ReconnectConfig
	connect   func() (amqpSession, error)
	clock     func() time.Time

	session     amqpSession
	delay       time.Duration
	nextAttempt time.Time
	attempts    int
	published   uint64
}

// NewAMQPPublisher 创建 AMQP 发布器
func NewAMQPPublisher(url, exchange string) *AMQPPublisher {
	p := &AMQPPublisher{
		url:       url,
		exchange:  exchange,
		reconnect: DefaultReconnectConfig(),
		clock:     time.Now,
	}
	p.connect = p.dial
	p.delay = p.reconnect.InitialDelay
	return p
}

// dial 建立连接并声明 exchange
func (p *AMQPPublisher) dial() (amqpSession, error) {
	logger.Printf("[AMQP] Connecting to exchange %s...", p.exchange)

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 60 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	if err := channel.ExchangeDeclare(
		p.exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	logger.Println("[AMQP] ✅ Connected to AMQP server")
	return &channelSession{conn: conn, channel: channel}, nil
}

// Run 消费总线消息直到 ctx 取消或通道关闭
func (p *AMQPPublisher) Run(ctx context.Context, msgs <-chan BusMessage) error {
	defer p.closeSession()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			p.forward(msg)
		}
	}
}

// forward 发布单条消息；连接不可用且未到重连时间时直接丢弃
func (p *AMQPPublisher) forward(msg BusMessage) {
	if p.session == nil && !p.tryConnect() {
		return
	}

	body, err := json.Marshal(msg.Data)
	if err != nil {
		logger.Errorf("[AMQP] Failed to marshal %s: %v", msg.Topic, err)
		return
	}

	publishing := amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   msg.Timestamp,
		Type:        msg.Topic,
		Body:        body,
	}
	if entry, ok := msg.Data.(models.AgentLog); ok {
		publishing.MessageId = entry.ID
	}

	if err := p.session.Publish(p.exchange, RoutingKey(msg), false, false, publishing); err != nil {
		logger.Errorf("[AMQP] ⚠️  Publish failed, connection lost: %v", err)
		p.closeSession()
		p.nextAttempt = p.clock().Add(p.delay)
		return
	}
	p.published++
}

func (p *AMQPPublisher) tryConnect() bool {
	now := p.clock()
	if now.Before(p.nextAttempt) {
		return false
	}

	session, err := p.connect()
	if err != nil {
		p.attempts++
		logger.Errorf("[AMQP] ❌ Connect failed (attempt %d): %v, retrying in %v", p.attempts, err, p.delay)
		p.nextAttempt = now.Add(p.delay)

		// 增加延迟 (指数退避)
		p.delay = time.Duration(float64(p.delay) * p.reconnect.BackoffFactor)
		if p.delay > p.reconnect.MaxDelay {
			p.delay = p.reconnect.MaxDelay
		}
		return false
	}

	if p.attempts > 0 {
		logger.Printf("[AMQP] ✅ Reconnected after %d attempts", p.attempts)
	}
	p.session = session
	p.attempts = 0
	p.delay = p.reconnect.InitialDelay
	return true
}

func (p *AMQPPublisher) closeSession() {
	if p.session != nil {
		p.session.Close()
		p.session = nil
	}
}

// RoutingKey 根据 Topic 生成 routing key
func RoutingKey(msg BusMessage) string {
	switch msg.Topic {
	case TopicAgentLog:
		if msg.Key == "" {
			return "log.unknown"
		}
		return "log." + msg.Key
	default:
		return "snapshot." + msg.Topic
	}
}
