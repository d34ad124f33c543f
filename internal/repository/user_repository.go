package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/next-coder/internal/model"
	"gorm.io/gorm"
)

// UserRepository 用户与令牌数据访问
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser 创建用户
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUserByID 获取用户
func (r *UserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByAccount 获取用户
func (r *UserRepository) GetUserByAccount(ctx context.Context, account string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("user_account = ?", account).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsAccount 账号是否已存在
func (r *UserRepository) ExistsAccount(ctx context.Context, account string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.User{}).Where("user_account = ?", account).Count(&count).Error
	return count > 0, err
}

// ListUsers 分页查询用户
func (r *UserRepository) ListUsers(ctx context.Context, offset, limit int) ([]*model.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.User{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []*model.User
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&users).Error
	return users, total, err
}

// UpdateUser 更新用户
func (r *UserRepository) UpdateUser(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// CreateToken 创建令牌
func (r *UserRepository) CreateToken(ctx context.Context, token *model.AuthToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// GetTokenByValue 获取有效令牌
func (r *UserRepository) GetTokenByValue(ctx context.Context, tokenValue string) (*model.AuthToken, error) {
	var token model.AuthToken
	err := r.db.WithContext(ctx).Where("token = ? AND is_revoked = ?", tokenValue, false).
		Where("expires_at > ?", time.Now()).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// RevokeToken 撤销令牌
func (r *UserRepository) RevokeToken(ctx context.Context, tokenID string) error {
	return r.db.WithContext(ctx).Model(&model.AuthToken{}).Where("id = ?", tokenID).Update("is_revoked", true).Error
}

// RevokeTokensByUserID 撤销用户的所有令牌
func (r *UserRepository) RevokeTokensByUserID(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Model(&model.AuthToken{}).Where("user_id = ?", userID).Update("is_revoked", true).Error
}

// DeleteExpiredTokens 删除过期令牌
func (r *UserRepository) DeleteExpiredTokens(ctx context.Context) error {
	return r.db.WithContext(ctx).Where("expires_at < ? OR is_revoked = ?", time.Now(), true).Delete(&model.AuthToken{}).Error
}
