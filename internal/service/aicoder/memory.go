// Package aicoder 按应用隔离的 AI 代码生成服务及其对话记忆
package aicoder

import (
	"context"
	"sync"

	"github.com/cloudwego/eino/schema"
)

// DefaultMaxMessages 对话记忆窗口默认大小
const DefaultMaxMessages = 20

// ChatMemory 滑动窗口对话记忆，超过上限时丢弃最早的消息
// 并发安全；store 不为空时每次变更同步镜像
type ChatMemory struct {
	mu       sync.Mutex
	id       int64
	max      int
	messages []*schema.Message
	store    MemoryStore
}

// NewChatMemory 创建对话记忆
func NewChatMemory(id int64, max int, store MemoryStore) *ChatMemory {
	if max <= 0 {
		max = DefaultMaxMessages
	}
	return &ChatMemory{id: id, max: max, store: store}
}

// ID 记忆所属应用
func (m *ChatMemory) ID() int64 {
	return m.id
}

// Max 窗口大小
func (m *ChatMemory) Max() int {
	return m.max
}

// Add 追加消息
func (m *ChatMemory) Add(ctx context.Context, msgs ...*schema.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range msgs {
		if msg == nil {
			continue
		}
		m.messages = append(m.messages, msg)
	}
	if over := len(m.messages) - m.max; over > 0 {
		m.messages = append([]*schema.Message(nil), m.messages[over:]...)
	}
	return m.sync(ctx)
}

// Messages 当前窗口内消息的副本，最早的在前
func (m *ChatMemory) Messages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*schema.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len 当前消息数
func (m *ChatMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Clear 清空记忆
func (m *ChatMemory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = nil
	if m.store == nil {
		return nil
	}
	return m.store.Delete(ctx, m.id)
}

func (m *ChatMemory) sync(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	return m.store.Update(ctx, m.id, m.messages)
}
