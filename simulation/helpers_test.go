package simulation

import (
	"fmt"
	"sync"
	"time"

	"livepulse-service/models"
)

// scriptedRand 按顺序返回预设值，用完后 Intn 返回 0，Float64 返回 0.99
type scriptedRand struct {
	mu     sync.Mutex
	ints   []int
	floats []float64
}

func (s *scriptedRand) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

func (s *scriptedRand) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0.99
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

var testNow = time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testProduct(id string, stock, initial, sales int) models.Product {
	p := models.Product{
		ID:           id,
		Name:         "商品" + id,
		Price:        10,
		Stock:        stock,
		InitialStock: initial,
		Sales:        sales,
	}
	p.RefreshStockStatus()
	return p
}

func testRoom(id string, viewers int, products ...models.Product) *models.Room {
	r := &models.Room{
		ID:             id,
		Name:           fmt.Sprintf("直播间%s", id),
		HostName:       "主播",
		Viewers:        viewers,
		ConversionRate: 0.02,
		Products:       products,
		StartTime:      testNow,
	}
	r.RefreshHealth()
	return r
}

func ptr[T any](v T) *T { return &v }

func actions(logs []models.AgentLog) []string {
	out := make([]string, len(logs))
	for i, l := range logs {
		out[i] = l.ActionType
	}
	return out
}

func countAction(logs []models.AgentLog, action string) int {
	n := 0
	for _, l := range logs {
		if l.ActionType == action {
			n++
		}
	}
	return n
}
