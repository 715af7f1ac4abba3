package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"livepulse-service/logger"
	"livepulse-service/models"
	"livepulse-service/simulation"
)

// AlertActions 需要推送到飞书的日志类型
var AlertActions = map[string]bool{
	simulation.ActionAnomalousTraffic: true,
	simulation.ActionEmergencyRestock: true,
	simulation.ActionMultiWarehouse:   true,
}

// LarkNotifier 飞书机器人通知器
type LarkNotifier struct {
	webhookURL string
	client     *http.Client
	enabled    bool
	clock      func() time.Time
}

// NewLarkNotifier 创建飞书通知器
func NewLarkNotifier(webhookURL string) *LarkNotifier {
	enabled := webhookURL != ""
	if enabled {
		logger.Printf("[LarkNotifier] Initialized with webhook")
	} else {
		logger.Printf("[LarkNotifier] Disabled (no webhook URL)")
	}

	return &LarkNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    enabled,
		clock:      time.Now,
	}
}

// LarkMessage 飞书消息结构
type LarkMessage struct {
	MsgType string      `json:"msg_type"`
	Content interface{} `json:"content"`
}

// LarkTextContent 文本消息内容
type LarkTextContent struct {
	Text string `json:"text"`
}

// Enabled 是否配置了 webhook
func (n *LarkNotifier) Enabled() bool {
	return n.enabled
}

// SendText 发送文本消息
func (n *LarkNotifier) SendText(ctx context.Context, text string) error {
	if !n.enabled {
		return nil
	}

	return n.send(ctx, LarkMessage{
		MsgType: "text",
		Content: LarkTextContent{Text: text},
	})
}

func (n *LarkNotifier) send(ctx context.Context, message LarkMessage) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

func (n *LarkNotifier) now() string {
	return n.clock().Format("2006-01-02 15:04:05")
}

// NotifyServiceStart 通知服务启动
func (n *LarkNotifier) NotifyServiceStart(ctx context.Context, environment string, rooms int, seed int64) error {
	text := fmt.Sprintf("🚀 直播监控模拟服务启动\n环境: %s\n直播间: %d\n随机种子: %d\n时间: %s",
		environment, rooms, seed, n.now())
	return n.SendText(ctx, text)
}

// NotifyServiceStop 通知服务停止
func (n *LarkNotifier) NotifyServiceStop(ctx context.Context, stats models.GlobalStats, ticks uint64) error {
	text := fmt.Sprintf("🛑 直播监控模拟服务停止\n已执行 tick: %d\n总销售额: %.2f\n总利润: %.2f\n库存健康度: %s\n时间: %s",
		ticks, stats.TotalSales, stats.TotalProfit, stats.InventoryHealth, n.now())
	return n.SendText(ctx, text)
}

// NotifyAgentAlert 推送需要人工关注的 AI 助手日志
func (n *LarkNotifier) NotifyAgentAlert(ctx context.Context, entry models.AgentLog) error {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s · %s\n", entry.ActionType, entry.RoomName)
	b.WriteString(entry.Message)
	if entry.Impact != "" {
		fmt.Fprintf(&b, "\n影响: %s", entry.Impact)
	}
	fmt.Fprintf(&b, "\n时间: %s", entry.Timestamp.Format("2006-01-02 15:04:05"))
	return n.SendText(ctx, b.String())
}

// NotifyLogStats 通知日志分类统计
func (n *LarkNotifier) NotifyLogStats(ctx context.Context, stats map[string]int, total int, period string) error {
	actions := make([]string, 0, len(stats))
	for action, count := range stats {
		if count > 0 {
			actions = append(actions, action)
		}
	}
	sort.Strings(actions)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 AI 助手日志统计 (%s)\n总日志数: %d\n", period, total)
	for _, action := range actions {
		fmt.Fprintf(&b, "  %s: %d\n", action, stats[action])
	}
	fmt.Fprintf(&b, "时间: %s", n.now())
	return n.SendText(ctx, b.String())
}

// NotifyError 通知错误
func (n *LarkNotifier) NotifyError(ctx context.Context, component, message string) error {
	text := fmt.Sprintf("❌ 错误\n组件: %s\n消息: %s\n时间: %s", component, message, n.now())
	return n.SendText(ctx, text)
}

// Run 转发告警类日志，直到 ctx 取消或通道关闭
func (n *LarkNotifier) Run(ctx context.Context, msgs <-chan BusMessage) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			entry, ok := msg.Data.(models.AgentLog)
			if !ok || !AlertActions[entry.ActionType] {
				continue
			}
			if err := n.NotifyAgentAlert(ctx, entry); err != nil {
				logger.Errorf("[LarkNotifier] Failed to send alert: %v", err)
			}
		}
	}
}
