package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepulse-service/models"
)

func TestBusFanOut(t *testing.T) {
	bus := NewInMemoryBus(4)
	defer bus.Close()

	logs, err := bus.Consume("logs", TopicAgentLog)
	require.NoError(t, err)
	all, err := bus.Consume("all", AllTopics...)
	require.NoError(t, err)

	require.NoError(t, bus.Produce(BusMessage{Topic: TopicAgentLog, Key: "room_1"}))
	require.NoError(t, bus.Produce(BusMessage{Topic: TopicLiveRooms}))

	assert.Equal(t, TopicAgentLog, (<-logs).Topic)
	assert.Empty(t, logs)

	assert.Equal(t, TopicAgentLog, (<-all).Topic)
	assert.Equal(t, TopicLiveRooms, (<-all).Topic)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewInMemoryBus(2)
	defer bus.Close()

	slow, err := bus.Consume("slow", TopicGlobalStats)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Produce(BusMessage{Topic: TopicGlobalStats})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Produce blocked on a full consumer")
	}

	assert.Len(t, slow, 2)
	assert.Equal(t, uint64(8), bus.Dropped("slow"))
}

func TestBusClose(t *testing.T) {
	bus := NewInMemoryBus(0)
	ch, err := bus.Consume("c", TopicAgentLog)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, bus.Produce(BusMessage{Topic: TopicAgentLog}), ErrBusClosed)

	_, err = bus.Consume("late", TopicAgentLog)
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestBroadcasterTopics(t *testing.T) {
	bus := NewInMemoryBus(8)
	defer bus.Close()
	ch, err := bus.Consume("all", AllTopics...)
	require.NoError(t, err)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := NewBroadcaster(bus)
	b.clock = func() time.Time { return now }

	rooms := []models.Room{{ID: "room_1"}}
	stats := models.GlobalStats{TotalSales: 12.5}
	b.PublishSnapshot(rooms, stats)
	b.PublishLog(models.AgentLog{ID: "log-1", RoomID: "room_1"})

	first := <-ch
	assert.Equal(t, TopicLiveRooms, first.Topic)
	assert.Equal(t, rooms, first.Data)
	assert.Equal(t, now, first.Timestamp)

	second := <-ch
	assert.Equal(t, TopicGlobalStats, second.Topic)
	assert.Equal(t, stats, second.Data)

	third := <-ch
	assert.Equal(t, TopicAgentLog, third.Topic)
	assert.Equal(t, "room_1", third.Key)
}
