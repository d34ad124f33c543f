package aicoder

import (
	"context"
	"time"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/metrics"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
)

// HistoryLoader 从持久化对话历史恢复记忆
type HistoryLoader interface {
	// LoadChatHistoryToMemory 清空 memory 后加载最近 max 条消息，返回加载条数
	LoadChatHistoryToMemory(ctx context.Context, appID int64, memory *ChatMemory, max int) int
}

// FactoryConfig 工厂配置
type FactoryConfig struct {
	ChatModel   ecomodel.BaseChatModel
	History     HistoryLoader
	Store       MemoryStore // 可为空
	Cache       CacheConfig
	MaxMessages int
	Log         *logger.Logger
}

// FactoryOption 工厂选项
type FactoryOption func(*Factory)

// WithClock 替换缓存时钟
func WithClock(now func() time.Time) FactoryOption {
	return func(f *Factory) {
		f.cache.now = now
	}
}

// Factory 按应用创建并缓存代码生成服务
type Factory struct {
	cfg        FactoryConfig
	cache      *Cache[int64, *Service]
	defaultSvc *Service
	log        *logger.Logger
}

var _ codegen.GeneratorProvider = (*Factory)(nil)

// NewFactory 创建工厂
func NewFactory(cfg FactoryConfig, opts ...FactoryOption) (*Factory, error) {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.Log == nil {
		cfg.Log = logger.NewNop()
	}

	f := &Factory{cfg: cfg, log: cfg.Log}
	cache, err := NewCache[int64, *Service](cfg.Cache, f.onRemoval)
	if err != nil {
		return nil, err
	}
	f.cache = cache

	for _, opt := range opts {
		opt(f)
	}

	// 默认服务，不绑定应用
	f.defaultSvc = NewService(0, cfg.ChatModel, NewChatMemory(0, cfg.MaxMessages, nil), cfg.Log)
	return f, nil
}

// Default 默认服务
func (f *Factory) Default() codegen.Generator {
	return f.defaultSvc
}

// ForApp 获取应用服务，不存在时创建并从对话历史恢复记忆
func (f *Factory) ForApp(ctx context.Context, appID int64) (codegen.Generator, error) {
	return f.Service(ctx, appID)
}

// Service 同 ForApp，返回具体类型
func (f *Factory) Service(ctx context.Context, appID int64) (*Service, error) {
	return f.cache.Get(ctx, appID, func(ctx context.Context) (*Service, error) {
		return f.create(ctx, appID), nil
	})
}

// Invalidate 移除应用服务并删除记忆镜像，删除应用时调用
func (f *Factory) Invalidate(appID int64) {
	f.cache.Invalidate(appID)
	if f.cfg.Store == nil {
		return
	}
	if err := f.cfg.Store.Delete(context.Background(), appID); err != nil {
		f.log.Warn("failed to delete chat memory from store", "app_id", appID, "error", err)
	}
}

// Len 缓存的服务数
func (f *Factory) Len() int {
	return f.cache.Len()
}

// RunJanitor 定期清理过期服务，ctx 结束时退出
func (f *Factory) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.cache.CleanUp()
		}
	}
}

func (f *Factory) create(ctx context.Context, appID int64) *Service {
	f.log.Info("creating ai coder service", "app_id", appID)
	memory := NewChatMemory(appID, f.cfg.MaxMessages, f.cfg.Store)
	// 构造可能被多个请求共享，不跟随首个请求取消
	ctx = context.WithoutCancel(ctx)

	// 加载历史会先清空镜像，快照要在加载前取
	snapshot := f.loadSnapshot(ctx, appID)

	loaded := 0
	if f.cfg.History != nil {
		loaded = f.cfg.History.LoadChatHistoryToMemory(ctx, appID, memory, f.cfg.MaxMessages)
		f.log.Debug("chat history loaded to memory", "app_id", appID, "count", loaded)
	}
	if loaded == 0 && len(snapshot) > 0 {
		if err := memory.Add(ctx, snapshot...); err != nil {
			f.log.Warn("failed to sync restored chat memory", "app_id", appID, "error", err)
		}
		f.log.Info("chat memory restored from store", "app_id", appID, "count", memory.Len())
	}

	metrics.GeneratorCacheEvents.WithLabelValues("created", "").Inc()
	return NewService(appID, f.cfg.ChatModel, memory, f.log)
}

func (f *Factory) loadSnapshot(ctx context.Context, appID int64) []*schema.Message {
	if f.cfg.Store == nil {
		return nil
	}
	msgs, err := f.cfg.Store.Load(ctx, appID)
	if err != nil {
		f.log.Warn("failed to load chat memory from store", "app_id", appID, "error", err)
		return nil
	}
	return msgs
}

func (f *Factory) onRemoval(appID int64, _ *Service, cause RemovalCause) {
	metrics.GeneratorCacheEvents.WithLabelValues("removed", string(cause)).Inc()
	f.log.Debug("ai coder service removed", "app_id", appID, "cause", cause)
}
