package repository

import (
	"errors"

	"gorm.io/gorm"
)

// Repositories 仓库集合，用于统一管理所有仓库
type Repositories struct {
	DB          *gorm.DB // 直接访问数据库
	App         *AppRepository
	ChatHistory *ChatHistoryRepository
	User        *UserRepository
}

// NewRepositories 创建所有仓库
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		DB:          db,
		App:         NewAppRepository(db),
		ChatHistory: NewChatHistoryRepository(db),
		User:        NewUserRepository(db),
	}
}

// IsNotFound 记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
