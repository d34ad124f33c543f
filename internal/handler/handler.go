package handler

import (
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	User        *UserHandler
	App         *AppHandler
	ChatHistory *ChatHistoryHandler
	CodeGen     *CodeGenHandler
	Static      *StaticHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services, log *logger.Logger) *Handlers {
	return &Handlers{
		User:        NewUserHandler(svc),
		App:         NewAppHandler(svc, log),
		ChatHistory: NewChatHistoryHandler(svc),
		CodeGen:     NewCodeGenHandler(svc),
		Static:      NewStaticHandler(svc.Config.CodeGen.DeployRoot, svc.Config.CodeGen.OutputRoot),
	}
}
