package model

import (
	"time"

	"gorm.io/gorm"
)

// App 应用
type App struct {
	ID           int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	AppName      string         `gorm:"size:256;index" json:"appName"`
	Cover        string         `gorm:"size:512" json:"cover"`
	InitPrompt   string         `gorm:"type:text" json:"initPrompt"`
	CodeGenType  CodeGenType    `gorm:"size:64" json:"codeGenType"`
	DeployKey    *string        `gorm:"size:64;uniqueIndex" json:"deployKey"`
	DeployedTime *time.Time     `json:"deployedTime"`
	Priority     int            `gorm:"default:0;index" json:"priority"`
	UserID       int64          `gorm:"index;not null" json:"userId"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName 指定表名
func (App) TableName() string {
	return "app"
}

// GetDeployKey 部署标识，未部署时为空
func (a *App) GetDeployKey() string {
	if a.DeployKey == nil {
		return ""
	}
	return *a.DeployKey
}

// IsOwnedBy 是否为该用户创建
func (a *App) IsOwnedBy(userID int64) bool {
	return a.UserID == userID
}
