package model

import "time"

// UserRole 用户角色
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

// User 用户
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserAccount  string    `gorm:"uniqueIndex;size:256;not null" json:"userAccount"`
	UserPassword string    `gorm:"size:512;not null" json:"-"`
	UserName     string    `gorm:"size:256" json:"userName"`
	UserAvatar   string    `gorm:"size:1024" json:"userAvatar"`
	UserProfile  string    `gorm:"size:512" json:"userProfile"`
	UserRole     UserRole  `gorm:"size:32;default:user" json:"userRole"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updateTime"`
}

// TableName 指定表名
func (User) TableName() string {
	return "user"
}

// IsAdmin 是否为管理员
func (u *User) IsAdmin() bool {
	return u != nil && u.UserRole == UserRoleAdmin
}

// AuthToken 认证令牌，用于注销后撤销
type AuthToken struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	IsRevoked bool      `gorm:"default:false" json:"is_revoked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName 指定表名
func (AuthToken) TableName() string {
	return "auth_tokens"
}

// UserVO 用户信息（不含敏感数据）
type UserVO struct {
	ID          int64     `json:"id"`
	UserAccount string    `json:"userAccount"`
	UserName    string    `json:"userName"`
	UserAvatar  string    `json:"userAvatar"`
	UserProfile string    `json:"userProfile"`
	UserRole    UserRole  `json:"userRole"`
	CreatedAt   time.Time `json:"createTime"`
}

// ToVO 转换为 UserVO
func (u *User) ToVO() *UserVO {
	if u == nil {
		return nil
	}
	return &UserVO{
		ID:          u.ID,
		UserAccount: u.UserAccount,
		UserName:    u.UserName,
		UserAvatar:  u.UserAvatar,
		UserProfile: u.UserProfile,
		UserRole:    u.UserRole,
		CreatedAt:   u.CreatedAt,
	}
}
