package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/ashwinyue/next-coder/internal/config"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/service/aicoder"
	"github.com/ashwinyue/next-coder/internal/service/app"
	"github.com/ashwinyue/next-coder/internal/service/chathistory"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
	"github.com/ashwinyue/next-coder/internal/service/deploy"
	"github.com/ashwinyue/next-coder/internal/service/user"
)

// Services 服务集合
type Services struct {
	User        *user.Service
	App         *app.Service
	ChatHistory *chathistory.Service
	CodeGen     *codegen.Facade
	Generators  *aicoder.Factory
	Deploy      *deploy.Manager

	// 配置
	Config *config.Config

	// Eino 组件
	ChatModel ecomodel.BaseChatModel
}

// Option 服务初始化选项
type Option func(*options)

type options struct {
	chatModel ecomodel.BaseChatModel
}

// WithChatModel 指定 ChatModel，不再按配置创建
func WithChatModel(m ecomodel.BaseChatModel) Option {
	return func(o *options) {
		o.chatModel = m
	}
}

// NewServices 创建所有服务
func NewServices(repo *repository.Repositories, cfg *config.Config, redisClient *redis.Client, log *logger.Logger, opts ...Option) (*Services, error) {
	ctx := context.Background()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	chatModel := o.chatModel
	if chatModel == nil {
		m, err := newChatModel(ctx, cfg)
		if err != nil {
			log.Warn("failed to create chat model, code generation unavailable", "error", err)
			chatModel = &unavailableModel{err: err}
		} else {
			chatModel = m
		}
	}

	// 对话记忆镜像
	var store aicoder.MemoryStore
	if redisClient != nil {
		store = aicoder.NewRedisMemoryStore(redisClient, cfg.Memory.StoreTTL)
	}

	historySvc := chathistory.NewService(repo, log.With("component", "chat_history"))

	generators, err := aicoder.NewFactory(aicoder.FactoryConfig{
		ChatModel: chatModel,
		History:   historySvc,
		Store:     store,
		Cache: aicoder.CacheConfig{
			MaximumSize:       cfg.Cache.MaximumSize,
			ExpireAfterWrite:  cfg.Cache.ExpireAfterWrite,
			ExpireAfterAccess: cfg.Cache.ExpireAfterAccess,
		},
		MaxMessages: cfg.Memory.MaxMessages,
		Log:         log.With("component", "ai_coder"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ai coder factory: %w", err)
	}

	saver, err := codegen.NewSaver(cfg.CodeGen.OutputRoot)
	if err != nil {
		return nil, err
	}
	facade := codegen.NewFacade(generators, saver, log.With("component", "codegen"))

	deployer := deploy.NewManager(repo.App, deploy.Config{
		OutputRoot: cfg.CodeGen.OutputRoot,
		DeployRoot: cfg.CodeGen.DeployRoot,
		DeployHost: cfg.CodeGen.DeployHost,
	}, log.With("component", "deploy"))

	return &Services{
		User:        user.NewService(repo, cfg.Auth.JWTSecret, cfg.Auth.AccessTTL),
		App:         app.NewService(repo, historySvc, facade, generators, deployer, log.With("component", "app")),
		ChatHistory: historySvc,
		CodeGen:     facade,
		Generators:  generators,
		Deploy:      deployer,

		Config:    cfg,
		ChatModel: chatModel,
	}, nil
}

// newChatModel 创建 ChatModel，各厂商均走 OpenAI 兼容接口
func newChatModel(ctx context.Context, cfg *config.Config) (ecomodel.BaseChatModel, error) {
	aiCfg := cfg.AI

	var apiKey, baseURL, modelName string

	switch aiCfg.Provider {
	case "openai":
		apiKey = aiCfg.OpenAI.APIKey
		baseURL = aiCfg.OpenAI.BaseURL
		modelName = aiCfg.OpenAI.Model
	case "alibaba", "qwen", "dashscope":
		apiKey = aiCfg.Alibaba.AccessKeySecret
		baseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"
		modelName = aiCfg.Alibaba.Model
	case "deepseek":
		apiKey = aiCfg.DeepSeek.APIKey
		baseURL = aiCfg.DeepSeek.BaseURL
		modelName = aiCfg.DeepSeek.Model
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", aiCfg.Provider)
	}

	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for provider: %s", aiCfg.Provider)
	}

	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:  apiKey,
		BaseURL: baseURL,
		Model:   modelName,
	})
}

// unavailableModel 模型未配置时的占位，所有调用返回错误
type unavailableModel struct {
	err error
}

func (m *unavailableModel) Generate(ctx context.Context, input []*schema.Message, opts ...ecomodel.Option) (*schema.Message, error) {
	return nil, errors.Join(errors.New("chat model unavailable"), m.err)
}

func (m *unavailableModel) Stream(ctx context.Context, input []*schema.Message, opts ...ecomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.Join(errors.New("chat model unavailable"), m.err)
}
