package aicoder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
)

// Redis key 前缀
const memoryKeyPrefix = "chat_memory:"

// MemoryStore 对话记忆镜像存储，对话历史不可用时用于恢复记忆
type MemoryStore interface {
	Update(ctx context.Context, id int64, messages []*schema.Message) error
	Delete(ctx context.Context, id int64) error
	Load(ctx context.Context, id int64) ([]*schema.Message, error)
}

// InMemoryStore 进程内存储
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[int64][]*schema.Message
}

// NewInMemoryStore 创建进程内存储
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[int64][]*schema.Message)}
}

// Update 覆盖保存
func (s *InMemoryStore) Update(_ context.Context, id int64, messages []*schema.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[id] = append([]*schema.Message(nil), messages...)
	return nil
}

// Delete 删除
func (s *InMemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// Load 读取，不存在时返回空
func (s *InMemoryStore) Load(_ context.Context, id int64) ([]*schema.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*schema.Message(nil), s.data[id]...), nil
}

// messageData 消息数据（用于 Redis 存储）
type messageData struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// roleToSchema 将字符串角色转换为 schema.RoleType
func roleToSchema(role string) schema.RoleType {
	switch role {
	case "system":
		return schema.System
	case "assistant":
		return schema.Assistant
	default:
		return schema.User
	}
}

// RedisMemoryStore Redis 存储，JSON 序列化，key 为 chat_memory:{appId}
type RedisMemoryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMemoryStore 创建 Redis 存储
func NewRedisMemoryStore(client *redis.Client, ttl time.Duration) *RedisMemoryStore {
	return &RedisMemoryStore{client: client, ttl: ttl}
}

// Update 覆盖保存
func (s *RedisMemoryStore) Update(ctx context.Context, id int64, messages []*schema.Message) error {
	data := make([]messageData, 0, len(messages))
	for _, msg := range messages {
		data = append(data, messageData{Role: string(msg.Role), Content: msg.Content})
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal chat memory: %w", err)
	}
	if err := s.client.Set(ctx, memoryKey(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save chat memory to redis: %w", err)
	}
	return nil
}

// Delete 删除
func (s *RedisMemoryStore) Delete(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, memoryKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete chat memory from redis: %w", err)
	}
	return nil
}

// Load 读取，不存在时返回空
func (s *RedisMemoryStore) Load(ctx context.Context, id int64) ([]*schema.Message, error) {
	raw, err := s.client.Get(ctx, memoryKey(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat memory from redis: %w", err)
	}

	var data []messageData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat memory: %w", err)
	}
	messages := make([]*schema.Message, len(data))
	for i, md := range data {
		messages[i] = &schema.Message{Role: roleToSchema(md.Role), Content: md.Content}
	}
	return messages, nil
}

func memoryKey(id int64) string {
	return fmt.Sprintf("%s%d", memoryKeyPrefix, id)
}
