package aicoder

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	ecomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
)

// Service 绑定单个应用的代码生成服务
type Service struct {
	appID     int64
	chatModel ecomodel.BaseChatModel
	memory    *ChatMemory
	log       *logger.Logger
}

var (
	_ codegen.Generator      = (*Service)(nil)
	_ codegen.ReplyCommitter = (*Service)(nil)
)

// NewService 创建代码生成服务
func NewService(appID int64, chatModel ecomodel.BaseChatModel, memory *ChatMemory, log *logger.Logger) *Service {
	return &Service{
		appID:     appID,
		chatModel: chatModel,
		memory:    memory,
		log:       log.With("app_id", appID),
	}
}

// AppID 所属应用
func (s *Service) AppID() int64 {
	return s.appID
}

// Memory 对话记忆
func (s *Service) Memory() *ChatMemory {
	return s.memory
}

// GenerateHTML 生成单文件 HTML
func (s *Service) GenerateHTML(ctx context.Context, prompt string) (*codegen.HTMLCodeResult, error) {
	reply, err := s.generate(ctx, model.CodeGenTypeHTML, prompt)
	if err != nil {
		return nil, err
	}

	var result codegen.HTMLCodeResult
	if err := decodeResult(reply, &result); err != nil || strings.TrimSpace(result.HTMLCode) == "" {
		s.log.Debug("structured reply not usable, falling back to code fences", "error", err)
		return codegen.ParseHTML(reply), nil
	}
	return &result, nil
}

// GenerateMultiFile 生成多文件代码
func (s *Service) GenerateMultiFile(ctx context.Context, prompt string) (*codegen.MultiFileCodeResult, error) {
	reply, err := s.generate(ctx, model.CodeGenTypeMultiFile, prompt)
	if err != nil {
		return nil, err
	}

	var result codegen.MultiFileCodeResult
	if err := decodeResult(reply, &result); err != nil || strings.TrimSpace(result.HTMLCode) == "" {
		s.log.Debug("structured reply not usable, falling back to code fences", "error", err)
		return codegen.ParseMultiFile(reply), nil
	}
	return &result, nil
}

func (s *Service) generate(ctx context.Context, genType model.CodeGenType, prompt string) (string, error) {
	userMsg := schema.UserMessage(prompt)
	messages := s.buildMessages(jsonPrompt(genType), userMsg)
	s.remember(ctx, userMsg)

	reply, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", apperr.Wrap(apperr.GenerationFailed, err, "AI 生成失败")
	}
	if reply == nil {
		return "", apperr.New(apperr.GenerationFailed, "AI 返回为空")
	}

	s.remember(ctx, schema.AssistantMessage(reply.Content, nil))
	return reply.Content, nil
}

// StreamCode 流式生成，只记住用户消息
// 完整回复由调用方在流自然结束后通过 CommitReply 写入记忆
func (s *Service) StreamCode(ctx context.Context, genType model.CodeGenType, prompt string) (*schema.StreamReader[*schema.Message], error) {
	if !genType.Valid() {
		return nil, apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", genType)
	}

	userMsg := schema.UserMessage(prompt)
	messages := s.buildMessages(streamPrompt(genType), userMsg)
	s.remember(ctx, userMsg)

	upstream, err := s.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, apperr.Wrap(apperr.GenerationFailed, err, "AI 生成失败")
	}

	sr, sw := schema.Pipe[*schema.Message](10)
	go func() {
		defer upstream.Close()
		defer sw.Close()

		for {
			msg, err := upstream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sw.Send(nil, err)
				return
			}
			if msg == nil {
				continue
			}
			if closed := sw.Send(msg, nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

// CommitReply 把流式生成的完整回复写入记忆
func (s *Service) CommitReply(ctx context.Context, reply string) {
	if strings.TrimSpace(reply) == "" {
		return
	}
	s.remember(ctx, schema.AssistantMessage(reply, nil))
}

func (s *Service) buildMessages(systemPrompt string, userMsg *schema.Message) []*schema.Message {
	history := s.memory.Messages()
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, schema.SystemMessage(systemPrompt))
	messages = append(messages, history...)
	messages = append(messages, userMsg)
	return messages
}

// remember 写入记忆，镜像存储失败不影响生成
func (s *Service) remember(ctx context.Context, msg *schema.Message) {
	if err := s.memory.Add(ctx, msg); err != nil {
		s.log.Warn("failed to sync chat memory", "error", err)
	}
}

// decodeResult 解析结构化回复，容忍代码块包裹和轻微的 JSON 格式错误
func decodeResult(reply string, v interface{}) error {
	s := strings.TrimSpace(reply)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	if !strings.HasPrefix(s, "{") {
		return errors.New("reply is not a json object")
	}

	if !json.Valid([]byte(s)) {
		repaired, err := jsonrepair.JSONRepair(s)
		if err != nil {
			return err
		}
		s = repaired
	}
	return json.Unmarshal([]byte(s), v)
}
