package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livepulse-service/models"
	"livepulse-service/simulation"
)

type webhookRecorder struct {
	mu    sync.Mutex
	texts []string
}

func (w *webhookRecorder) handler(status int) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var msg struct {
			MsgType string `json:"msg_type"`
			Content struct {
				Text string `json:"text"`
			} `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&msg); err == nil && msg.MsgType == "text" {
			w.mu.Lock()
			w.texts = append(w.texts, msg.Content.Text)
			w.mu.Unlock()
		}
		rw.WriteHeader(status)
	}
}

func (w *webhookRecorder) Texts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.texts...)
}

func TestLarkNotifierDisabled(t *testing.T) {
	n := NewLarkNotifier("")
	assert.False(t, n.Enabled())
	assert.NoError(t, n.SendText(context.Background(), "ignored"))
}

func TestLarkNotifierSendText(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	n := NewLarkNotifier(srv.URL)
	n.clock = func() time.Time { return time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) }

	require.NoError(t, n.NotifyServiceStart(context.Background(), "test", 5, 42))
	texts := rec.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "直播间: 5")
	assert.Contains(t, texts[0], "2025-06-01 20:00:00")
}

func TestLarkNotifierEngineError(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	tickErr := &simulation.TransientSimulationError{Tick: 7, Cause: context.DeadlineExceeded}
	require.NoError(t, NewLarkNotifier(srv.URL).NotifyError(context.Background(), "engine", tickErr.Error()))

	texts := rec.Texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "组件: engine")
	assert.Contains(t, texts[0], tickErr.Error())
}

func TestLarkNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer((&webhookRecorder{}).handler(http.StatusBadGateway))
	defer srv.Close()

	err := NewLarkNotifier(srv.URL).SendText(context.Background(), "hi")
	assert.ErrorContains(t, err, "502")
}

func TestLarkNotifierRunForwardsAlertsOnly(t *testing.T) {
	rec := &webhookRecorder{}
	srv := httptest.NewServer(rec.handler(http.StatusOK))
	defer srv.Close()

	n := NewLarkNotifier(srv.URL)
	msgs := make(chan BusMessage, 3)
	msgs <- BusMessage{Topic: TopicAgentLog, Data: models.AgentLog{ActionType: simulation.ActionAnomalousTraffic, RoomName: "烘焙甜蜜时光屋", Message: "观众激增"}}
	msgs <- BusMessage{Topic: TopicAgentLog, Data: models.AgentLog{ActionType: simulation.ActionSalesForecast}}
	msgs <- BusMessage{Topic: TopicAgentLog, Data: models.AgentLog{ActionType: simulation.ActionMultiWarehouse, RoomName: "健康轻食料理坊"}}
	close(msgs)

	require.NoError(t, n.Run(context.Background(), msgs))

	texts := rec.Texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "烘焙甜蜜时光屋")
	assert.Contains(t, texts[0], "观众激增")
	assert.Contains(t, texts[1], simulation.ActionMultiWarehouse)
}
