package models

import "time"

// 日志来源标记
const (
	SourceTriggeredEvent = "triggered_event_effect"
)

// AgentLog AI Agent 行为日志，写入历史后不可修改，按值传递
type AgentLog struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	RoomID     string    `json:"room_id"`
	RoomName   string    `json:"room_name"`
	ActionType string    `json:"action_type"`
	Message    string    `json:"message"`
	Impact     string    `json:"impact,omitempty"`
	Color      string    `json:"color"`
	Source     string    `json:"source,omitempty"`
}

// WithSource 返回带来源标记的副本
func (l AgentLog) WithSource(source string) AgentLog {
	l.Source = source
	return l
}
