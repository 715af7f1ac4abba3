package web

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepulse-service/models"
	"livepulse-service/services"
)

type frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

type wsFixture struct {
	server *Server
	hub    *Hub
	bus    chan services.BusMessage
	http   *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	bus := make(chan services.BusMessage, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wsHub.Run(ctx, bus)
	}()

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return &wsFixture{server: s, hub: s.wsHub, bus: bus, http: ts}
}

func (f *wsFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

// readBootstrap 读取连接后的四个初始帧
func readBootstrap(t *testing.T, conn *websocket.Conn) []frame {
	t.Helper()
	frames := make([]frame, 4)
	for i := range frames {
		frames[i] = readFrame(t, conn)
	}
	return frames
}

func TestBootstrapFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)

	frames := readBootstrap(t, conn)
	types := make([]string, len(frames))
	for i, fr := range frames {
		types[i] = fr.Type
		assert.NotZero(t, fr.Timestamp)
	}
	assert.Equal(t, []string{FrameConnected, FrameLiveRooms, FrameGlobalStats, FrameAgentLogs}, types)

	want := f.server.sim.Bootstrap(0)

	var rooms []models.Room
	require.NoError(t, json.Unmarshal(frames[1].Data, &rooms))
	require.Len(t, rooms, len(want.Rooms))
	for i := range rooms {
		assert.Equal(t, want.Rooms[i].ID, rooms[i].ID)
		assert.Equal(t, want.Rooms[i].Viewers, rooms[i].Viewers)
	}

	var stats models.GlobalStats
	require.NoError(t, json.Unmarshal(frames[2].Data, &stats))
	assert.Equal(t, want.Stats.ActiveRooms, stats.ActiveRooms)
	assert.Equal(t, want.Stats.InventoryHealth, stats.InventoryHealth)

	var logs []models.AgentLog
	require.NoError(t, json.Unmarshal(frames[3].Data, &logs))
	assert.Empty(t, logs)

	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestBusMessagesBecomeFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)
	readBootstrap(t, conn)

	entry := models.AgentLog{ID: "log-1", RoomID: "room_3", ActionType: "营销策略", Message: "hello"}
	f.bus <- services.BusMessage{Topic: services.TopicAgentLog, Key: entry.RoomID, Data: entry, Timestamp: time.Now()}

	fr := readFrame(t, conn)
	require.Equal(t, FrameAgentLog, fr.Type)

	var got models.AgentLog
	require.NoError(t, json.Unmarshal(fr.Data, &got))
	assert.Equal(t, "log-1", got.ID)
	assert.Equal(t, "room_3", got.RoomID)
}

func TestSubscribeFiltersAgentLogs(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)
	readBootstrap(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "subscribe", "room_ids": []string{"room_2"}}))
	// pong 返回时 subscribe 已经生效
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.Equal(t, FramePong, readFrame(t, conn).Type)

	for _, room := range []string{"room_1", "room_2"} {
		f.bus <- services.BusMessage{
			Topic:     services.TopicAgentLog,
			Key:       room,
			Data:      models.AgentLog{ID: "log-" + room, RoomID: room},
			Timestamp: time.Now(),
		}
	}
	f.bus <- services.BusMessage{Topic: services.TopicGlobalStats, Data: models.GlobalStats{ActiveRooms: 5}, Timestamp: time.Now()}

	fr := readFrame(t, conn)
	require.Equal(t, FrameAgentLog, fr.Type)
	var got models.AgentLog
	require.NoError(t, json.Unmarshal(fr.Data, &got))
	assert.Equal(t, "room_2", got.RoomID)

	// 快照类帧不受过滤影响
	assert.Equal(t, FrameGlobalStats, readFrame(t, conn).Type)
}

func TestUnsubscribeRestoresAllRooms(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t)
	readBootstrap(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "subscribe", "room_ids": []string{"room_2"}}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "unsubscribe"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.Equal(t, FramePong, readFrame(t, conn).Type)

	f.bus <- services.BusMessage{Topic: services.TopicAgentLog, Key: "room_4", Data: models.AgentLog{RoomID: "room_4"}, Timestamp: time.Now()}
	assert.Equal(t, FrameAgentLog, readFrame(t, conn).Type)
}

func TestJoinAfterHubStopped(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, s.wsHub.Run(ctx, make(chan services.BusMessage)))

	client := &Client{hub: s.wsHub, send: make(chan []byte, 1)}
	finished := make(chan bool)
	go func() {
		joined := s.wsHub.join(client)
		s.wsHub.leave(client)
		finished <- joined
	}()

	select {
	case joined := <-finished:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("join blocked after hub stopped")
	}
}

func TestSlowClientDropped(t *testing.T) {
	h := NewHub(nil, 1)
	slow := &Client{hub: h, send: make(chan []byte, 1)}
	fast := &Client{hub: h, send: make(chan []byte, 8)}
	h.clients[slow] = true
	h.clients[fast] = true

	h.deliver(h.frame(FrameGlobalStats, nil))
	h.deliver(h.frame(FrameGlobalStats, nil))

	assert.Equal(t, 1, h.ClientCount())
	assert.Len(t, fast.send, 2)

	_, open := <-slow.send
	assert.True(t, open, "buffered frame is still readable")
	_, open = <-slow.send
	assert.False(t, open)
}
