// Package chathistory 应用对话历史
package chathistory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/service/aicoder"
	"github.com/ashwinyue/next-coder/internal/service/types"
)

// 游标分页页大小上限
const maxCursorPageSize = 50

// Service 对话历史服务
type Service struct {
	repo *repository.Repositories
	log  *logger.Logger
}

var _ aicoder.HistoryLoader = (*Service)(nil)

// NewService 创建对话历史服务
func NewService(repo *repository.Repositories, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// AddChatMessage 记录一条消息
func (s *Service) AddChatMessage(ctx context.Context, appID int64, message string, messageType string, userID int64, parentID *int64) (*model.ChatHistory, error) {
	if appID <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "应用ID不能为空")
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperr.New(apperr.ValidationFailed, "消息内容不能为空")
	}
	if strings.TrimSpace(messageType) == "" {
		return nil, apperr.New(apperr.ValidationFailed, "消息类型不能为空")
	}
	if userID <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "用户ID不能为空")
	}
	mt, ok := model.ParseMessageType(messageType)
	if !ok {
		return nil, apperr.New(apperr.ValidationFailed, "不支持的消息类型: "+messageType)
	}

	chat := &model.ChatHistory{
		AppID:       appID,
		UserID:      userID,
		Message:     message,
		MessageType: mt,
		ParentID:    parentID,
	}
	if err := s.repo.ChatHistory.Create(ctx, chat); err != nil {
		return nil, apperr.Wrap(apperr.StorageError, err, "保存对话历史失败")
	}
	return chat, nil
}

// ListLatestByApp 应用最近的消息，按时间倒序
func (s *Service) ListLatestByApp(ctx context.Context, appID int64, limit int, before *time.Time) ([]*model.ChatHistory, error) {
	messages, err := s.repo.ChatHistory.ListLatestByApp(ctx, appID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	return messages, nil
}

// ListAppChatHistoryByPage 游标分页查询应用对话历史，仅创建者与管理员可见
func (s *Service) ListAppChatHistoryByPage(ctx context.Context, appID int64, pageSize int, lastCreateTime *time.Time, loginUser *model.User) (*types.Page[*model.ChatHistory], error) {
	if appID <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "应用ID不能为空")
	}
	if pageSize <= 0 || pageSize > maxCursorPageSize {
		return nil, apperr.New(apperr.ValidationFailed, "页面大小必须在1-50之间")
	}
	if loginUser == nil {
		return nil, apperr.New(apperr.NotLogin, "未登录")
	}

	app, err := s.repo.App.GetByID(ctx, appID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "应用不存在")
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	if !loginUser.IsAdmin() && !app.IsOwnedBy(loginUser.ID) {
		return nil, apperr.New(apperr.AuthorizationFailed, "无权查看该应用的对话历史")
	}

	records, err := s.repo.ChatHistory.ListLatestByApp(ctx, appID, pageSize, lastCreateTime)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	total, err := s.repo.ChatHistory.CountByApp(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to count chat history: %w", err)
	}
	return &types.Page[*model.ChatHistory]{
		Records:  records,
		Total:    total,
		PageNum:  1,
		PageSize: pageSize,
	}, nil
}

// AdminQuery 管理员查询条件
type AdminQuery struct {
	types.PageRequest
	AppID       int64  `json:"appId" form:"appId"`
	UserID      int64  `json:"userId" form:"userId"`
	MessageType string `json:"messageType" form:"messageType"`
	Message     string `json:"message" form:"message"`
}

// ListAllByAdmin 管理员分页查询全部对话历史
func (s *Service) ListAllByAdmin(ctx context.Context, q *AdminQuery) (*types.Page[*model.ChatHistory], error) {
	page := q.PageRequest.Normalize(10, 0)
	records, total, err := s.repo.ChatHistory.List(ctx, repository.ChatHistoryQuery{
		AppID:       q.AppID,
		UserID:      q.UserID,
		MessageType: model.MessageType(q.MessageType),
		Message:     q.Message,
		Offset:      page.Offset(),
		Limit:       page.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	return &types.Page[*model.ChatHistory]{
		Records:  records,
		Total:    total,
		PageNum:  page.PageNum,
		PageSize: page.PageSize,
	}, nil
}

// DeleteByAppID 删除应用的全部对话历史
func (s *Service) DeleteByAppID(ctx context.Context, appID int64) error {
	if appID <= 0 {
		return apperr.New(apperr.ValidationFailed, "应用ID不能为空")
	}
	if err := s.repo.ChatHistory.DeleteByAppID(ctx, appID); err != nil {
		return apperr.Wrap(apperr.StorageError, err, "删除对话历史失败")
	}
	return nil
}

// LoadChatHistoryToMemory 加载最近 max 条对话到记忆，旧消息在前
// 失败只记录日志并返回 0
func (s *Service) LoadChatHistoryToMemory(ctx context.Context, appID int64, memory *aicoder.ChatMemory, max int) int {
	records, err := s.repo.ChatHistory.ListLatestByApp(ctx, appID, max, nil)
	if err != nil {
		s.log.Error("failed to load chat history", "app_id", appID, "error", err)
		return 0
	}

	// 先清理，防止重复加载
	if err := memory.Clear(ctx); err != nil {
		s.log.Warn("failed to clear chat memory store", "app_id", appID, "error", err)
	}
	if len(records) == 0 {
		return 0
	}

	messages := make([]*schema.Message, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		switch records[i].MessageType {
		case model.MessageTypeUser:
			messages = append(messages, schema.UserMessage(records[i].Message))
		case model.MessageTypeAI:
			messages = append(messages, schema.AssistantMessage(records[i].Message, nil))
		}
	}
	if err := memory.Add(ctx, messages...); err != nil {
		s.log.Warn("failed to sync chat memory store", "app_id", appID, "error", err)
	}

	s.log.Info("chat history loaded", "app_id", appID, "count", len(messages))
	return len(messages)
}
