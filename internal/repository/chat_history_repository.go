package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/next-coder/internal/model"
	"gorm.io/gorm"
)

// ChatHistoryQuery 管理员对话历史查询条件
type ChatHistoryQuery struct {
	AppID       int64
	UserID      int64
	MessageType model.MessageType
	Message     string // 模糊匹配
	Offset      int
	Limit       int
}

// ChatHistoryRepository 对话历史数据访问
type ChatHistoryRepository struct {
	db *gorm.DB
}

// NewChatHistoryRepository 创建对话历史仓库
func NewChatHistoryRepository(db *gorm.DB) *ChatHistoryRepository {
	return &ChatHistoryRepository{db: db}
}

// Create 创建消息
func (r *ChatHistoryRepository) Create(ctx context.Context, msg *model.ChatHistory) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListLatestByApp 获取应用最近的 N 条消息，按时间倒序
// before 不为空时只取早于该时间的消息（游标分页）
func (r *ChatHistoryRepository) ListLatestByApp(ctx context.Context, appID int64, limit int, before *time.Time) ([]*model.ChatHistory, error) {
	query := r.db.WithContext(ctx).Where("app_id = ?", appID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}
	var messages []*model.ChatHistory
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

// CountByApp 统计应用消息数
func (r *ChatHistoryRepository) CountByApp(ctx context.Context, appID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChatHistory{}).Where("app_id = ?", appID).Count(&count).Error
	return count, err
}

// List 分页查询全部消息，按时间倒序
func (r *ChatHistoryRepository) List(ctx context.Context, q ChatHistoryQuery) ([]*model.ChatHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.ChatHistory{})
	if q.AppID > 0 {
		query = query.Where("app_id = ?", q.AppID)
	}
	if q.UserID > 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.MessageType != "" {
		query = query.Where("message_type = ?", q.MessageType)
	}
	if q.Message != "" {
		query = query.Where("message LIKE ?", "%"+q.Message+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []*model.ChatHistory
	err := query.Order("created_at DESC").Order("id DESC").
		Offset(q.Offset).Limit(q.Limit).Find(&messages).Error
	return messages, total, err
}

// DeleteByAppID 删除应用全部消息
func (r *ChatHistoryRepository) DeleteByAppID(ctx context.Context, appID int64) error {
	return r.db.WithContext(ctx).Where("app_id = ?", appID).Delete(&model.ChatHistory{}).Error
}
