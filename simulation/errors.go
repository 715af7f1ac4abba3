package simulation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 未找到错误
	ErrNotFound = errors.New("not found")

	// ErrEventNotFound 事件不存在
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)

	// ErrRoomNotFound 直播间不存在
	ErrRoomNotFound = fmt.Errorf("room %w", ErrNotFound)

	// ErrInvalidEffectData 事件定义数据无效，在加载事件目录时返回
	ErrInvalidEffectData = errors.New("invalid effect data")

	// ErrDrainTimeout 引擎未在排空超时内停止，已强制取消
	ErrDrainTimeout = errors.New("engine drain timeout")

	// ErrAlreadyRunning 引擎已启动
	ErrAlreadyRunning = errors.New("engine already running")
)

// TransientSimulationError 单次 tick 失败，引擎会在退避后重试
type TransientSimulationError struct {
	Tick  uint64
	Cause error
}

func (e *TransientSimulationError) Error() string {
	return fmt.Sprintf("tick %d failed: %v", e.Tick, e.Cause)
}

func (e *TransientSimulationError) Unwrap() error {
	return e.Cause
}

func invalidEffect(eventID, format string, args ...interface{}) error {
	return fmt.Errorf("%w: event %q: %s", ErrInvalidEffectData, eventID, fmt.Sprintf(format, args...))
}
