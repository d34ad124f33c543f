package model

import "time"

// MessageType 对话消息类型
type MessageType string

const (
	MessageTypeUser MessageType = "user"
	MessageTypeAI   MessageType = "ai"
)

// ParseMessageType 根据 value 获取消息类型
func ParseMessageType(value string) (MessageType, bool) {
	switch MessageType(value) {
	case MessageTypeUser, MessageTypeAI:
		return MessageType(value), true
	}
	return "", false
}

// ChatHistory 对话历史，只追加；按 CreatedAt 排序即为对话顺序
type ChatHistory struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Message     string      `gorm:"type:text;not null" json:"message"`
	MessageType MessageType `gorm:"size:32;not null" json:"messageType"`
	AppID       int64       `gorm:"index:idx_chat_app_time,priority:1;not null" json:"appId"`
	UserID      int64       `gorm:"index;not null" json:"userId"`
	ParentID    *int64      `json:"parentId,omitempty"`
	CreatedAt   time.Time   `gorm:"index:idx_chat_app_time,priority:2" json:"createTime"`
	UpdatedAt   time.Time   `json:"updateTime"`
}

// TableName 指定表名
func (ChatHistory) TableName() string {
	return "chat_history"
}
