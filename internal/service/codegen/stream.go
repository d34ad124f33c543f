package codegen

import (
	"strings"
	"sync"
)

// StreamState 流式生成状态
type StreamState string

const (
	StateStreaming StreamState = "streaming"
	StateCompleted StreamState = "completed"
	StateSaved     StreamState = "saved"
	StateFailed    StreamState = "failed"
	StateCancelled StreamState = "cancelled"
)

// Accumulator 收集流式片段，流结束后给出完整文本
type Accumulator struct {
	mu    sync.Mutex
	buf   strings.Builder
	state StreamState
}

// NewAccumulator 创建收集器
func NewAccumulator() *Accumulator {
	return &Accumulator{state: StateStreaming}
}

// Append 追加片段，非 streaming 状态下忽略
func (a *Accumulator) Append(chunk string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateStreaming {
		return
	}
	a.buf.WriteString(chunk)
}

// Complete 流自然结束，返回完整文本
func (a *Accumulator) Complete() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateStreaming {
		a.state = StateCompleted
	}
	return a.buf.String()
}

// Text 当前已收集的文本
func (a *Accumulator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf.String()
}

// Fail 标记失败
func (a *Accumulator) Fail() {
	a.transition(StateFailed)
}

// Cancel 调用方断开，丢弃已缓冲内容
func (a *Accumulator) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf.Reset()
	a.state = StateCancelled
}

// MarkSaved 解析保存完成
func (a *Accumulator) MarkSaved() {
	a.transition(StateSaved)
}

// State 当前状态
func (a *Accumulator) State() StreamState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Accumulator) transition(to StreamState) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = to
}
