// Package callback 提供 Eino Callback 日志支持
package callback

import (
	"context"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-coder/internal/logger"
)

// Logger 日志回调处理器
// 实现 callbacks.Handler 接口，用于记录 Eino 组件的执行事件
type Logger struct {
	log         *logger.Logger
	EnableDebug bool // 是否启用调试模式
}

var _ callbacks.Handler = (*Logger)(nil)

// NewLogger 创建日志回调处理器
func NewLogger(log *logger.Logger, enableDebug bool) *Logger {
	return &Logger{log: log, EnableDebug: enableDebug}
}

// OnStart 组件执行开始时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.EnableDebug {
		l.log.Debug("eino start", "name", info.Name, "type", info.Type, "component", info.Component)
	}
	return ctx
}

// OnEnd 组件执行成功结束时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if l.EnableDebug {
		l.log.Debug("eino end", "name", info.Name, "type", info.Type, "component", info.Component,
			"output", formatOutput(output))
	}
	return ctx
}

// OnError 组件执行出错时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	l.log.Error("eino error", "name", info.Name, "type", info.Type, "component", info.Component, "error", err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	if l.EnableDebug {
		l.log.Debug("eino stream input", "name", info.Name, "type", info.Type, "component", info.Component)
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	if l.EnableDebug {
		l.log.Debug("eino stream output", "name", info.Name, "type", info.Type, "component", info.Component)
	}
	return ctx
}

// formatOutput 截断过长输出
func formatOutput(output callbacks.CallbackOutput) interface{} {
	if output == nil {
		return nil
	}
	if str, ok := output.(string); ok && len(str) > 200 {
		return str[:200] + "..."
	}
	return output
}

// SetupGlobalCallbacks 设置全局回调
func SetupGlobalCallbacks(log *logger.Logger, enableDebug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(log, enableDebug))
	log.Info("eino global callbacks registered", "debug", enableDebug)
}
