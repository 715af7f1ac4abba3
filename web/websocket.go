package web

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"livepulse-service/logger"
	"livepulse-service/services"
	"livepulse-service/simulation"
)

// 帧类型
const (
	FrameConnected   = "connected"
	FrameLiveRooms   = "live_rooms"
	FrameGlobalStats = "global_stats"
	FrameAgentLog    = "agent_log"
	FrameAgentLogs   = "agent_logs"
	FramePong        = "pong"
)

const (
	clientSendBuffer = 256
	writeWait        = 10 * time.Second
)

// WSMessage WebSocket消息结构
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`

	// roomID 只用于 agent_log 的直播间过滤
	roomID string
}

// BootstrapSource 新连接的初始快照来源
type BootstrapSource interface {
	Bootstrap(logLimit int) simulation.Bootstrap
}

// Client WebSocket客户端
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	roomIDs map[string]bool // 直播间过滤器, 为空时接收全部
}

// Hub WebSocket Hub
type Hub struct {
	clients       map[*Client]bool
	register      chan *Client
	unregister    chan *Client
	replies       chan reply
	done          chan struct{}
	source        BootstrapSource
	bootstrapLogs int
	clock         func() time.Time
	mu            sync.RWMutex
}

// NewHub 创建新的Hub
func NewHub(source BootstrapSource, bootstrapLogs int) *Hub {
	if bootstrapLogs <= 0 {
		bootstrapLogs = simulation.DefaultLogLimit
	}
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		replies:       make(chan reply, 64),
		done:          make(chan struct{}),
		source:        source,
		bootstrapLogs: bootstrapLogs,
		clock:         time.Now,
	}
}

// Run 运行Hub，把总线消息转成帧广播给所有客户端
func (h *Hub) Run(ctx context.Context, msgs <-chan services.BusMessage) error {
	defer func() {
		h.closeAll()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.sendBootstrap(client)
			logger.Printf("[Hub] Client registered. Total clients: %d", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			logger.Printf("[Hub] Client unregistered. Total clients: %d", total)

		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			h.deliver(&WSMessage{
				Type:      msg.Topic,
				Data:      msg.Data,
				Timestamp: msg.Timestamp.UnixMilli(),
				roomID:    msg.Key,
			})

		case r := <-h.replies:
			h.mu.RLock()
			if h.clients[r.client] {
				r.client.queue(marshalMessage(r.message))
			}
			h.mu.RUnlock()
		}
	}
}

// reply 只发给单个客户端的帧
type reply struct {
	client  *Client
	message *WSMessage
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver 发送给所有匹配的客户端，发送缓冲区满的客户端被断开
func (h *Hub) deliver(message *WSMessage) {
	data := marshalMessage(message)

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		if !client.shouldReceive(message) {
			continue
		}

		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
			logger.Printf("[Hub] ⚠️  Dropped slow client. Total clients: %d", len(h.clients))
		}
	}
}

// sendBootstrap 向新连接推送 connected 和一次性读取的初始快照
func (h *Hub) sendBootstrap(client *Client) {
	boot := h.source.Bootstrap(h.bootstrapLogs)

	frames := []*WSMessage{
		h.frame(FrameConnected, map[string]interface{}{"message": "connected to live monitor"}),
		h.frame(FrameLiveRooms, boot.Rooms),
		h.frame(FrameGlobalStats, boot.Stats),
		h.frame(FrameAgentLogs, boot.Logs),
	}
	for _, f := range frames {
		client.queue(marshalMessage(f))
	}
}

func (h *Hub) frame(frameType string, data interface{}) *WSMessage {
	return &WSMessage{Type: frameType, Data: data, Timestamp: h.clock().UnixMilli()}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// marshalMessage 序列化消息
func marshalMessage(message *WSMessage) []byte {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Errorf("[Hub] Failed to marshal message: %v", err)
		return []byte("{}")
	}
	return data
}

// queue 非阻塞写入发送缓冲区，只在 Hub 协程中调用
func (c *Client) queue(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// shouldReceive 检查客户端是否应该接收消息
func (c *Client) shouldReceive(message *WSMessage) bool {
	if message.Type != FrameAgentLog {
		return true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.roomIDs) == 0 {
		return true
	}
	return c.roomIDs[message.roomID]
}

// readPump 读取客户端消息
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("[Hub] WebSocket error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

type clientMessage struct {
	Type    string   `json:"type"`
	RoomIDs []string `json:"room_ids"`
}

// handleMessage 处理客户端发送的消息
func (c *Client) handleMessage(message []byte) {
	var msg clientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Errorf("[Hub] Failed to unmarshal client message: %v", err)
		return
	}

	switch msg.Type {
	case "ping":
		select {
		case c.hub.replies <- reply{client: c, message: c.hub.frame(FramePong, nil)}:
		case <-c.hub.done:
		}

	case "subscribe":
		filter := make(map[string]bool, len(msg.RoomIDs))
		for _, id := range msg.RoomIDs {
			filter[id] = true
		}
		c.mu.Lock()
		c.roomIDs = filter
		c.mu.Unlock()
		logger.Debugf("[Hub] Client subscribed to rooms: %v", msg.RoomIDs)

	case "unsubscribe":
		c.mu.Lock()
		c.roomIDs = nil
		c.mu.Unlock()
		logger.Debugf("[Hub] Client unsubscribed")
	}
}
