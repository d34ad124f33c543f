// Package testutil 提供测试辅助工具
package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ashwinyue/next-coder/internal/database"
	"github.com/ashwinyue/next-coder/internal/logger"
)

var dbSeq atomic.Int64

// NewTestDB 创建内存 sqlite 数据库并完成迁移，每次调用互相隔离
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

// NewLogger 测试日志，不输出
func NewLogger() *logger.Logger {
	return logger.NewNop()
}

// ScriptedChatModel 按脚本回复的 ChatModel
// Generate 返回 Reply；Stream 依次发出 Chunks，StreamErr 不为空时在最后发出
type ScriptedChatModel struct {
	Reply       string
	Chunks      []string
	StreamErr   error
	GenerateErr error
	StartErr    error
	// Hold 不为空时，发完 Chunks 后阻塞直到关闭
	Hold chan struct{}

	mu     sync.Mutex
	inputs [][]*schema.Message

	generateCalls atomic.Int32
	streamCalls   atomic.Int32
}

var _ ecomodel.BaseChatModel = (*ScriptedChatModel)(nil)

// Generate 返回固定回复
func (m *ScriptedChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...ecomodel.Option) (*schema.Message, error) {
	m.generateCalls.Add(1)
	m.record(input)
	if m.GenerateErr != nil {
		return nil, m.GenerateErr
	}
	return schema.AssistantMessage(m.Reply, nil), nil
}

// Stream 依次发出脚本片段
func (m *ScriptedChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...ecomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	m.streamCalls.Add(1)
	m.record(input)
	if m.StartErr != nil {
		return nil, m.StartErr
	}

	sr, sw := schema.Pipe[*schema.Message](len(m.Chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range m.Chunks {
			if closed := sw.Send(schema.AssistantMessage(c, nil), nil); closed {
				return
			}
		}
		if m.Hold != nil {
			select {
			case <-m.Hold:
			case <-ctx.Done():
				sw.Send(nil, ctx.Err())
				return
			}
		}
		if m.StreamErr != nil {
			sw.Send(nil, m.StreamErr)
		}
	}()
	return sr, nil
}

func (m *ScriptedChatModel) record(input []*schema.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]*schema.Message, len(input))
	copy(cp, input)
	m.inputs = append(m.inputs, cp)
}

// GenerateCalls Generate 调用次数
func (m *ScriptedChatModel) GenerateCalls() int {
	return int(m.generateCalls.Load())
}

// StreamCalls Stream 调用次数
func (m *ScriptedChatModel) StreamCalls() int {
	return int(m.streamCalls.Load())
}

// LastInput 最近一次调用的输入消息
func (m *ScriptedChatModel) LastInput() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inputs) == 0 {
		return nil
	}
	return m.inputs[len(m.inputs)-1]
}
