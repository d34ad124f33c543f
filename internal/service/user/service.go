// Package user 用户注册、登录与令牌校验
package user

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/service/types"
)

const (
	minAccountLen  = 4
	minPasswordLen = 8
	defaultUser    = "无名"
)

// Service 用户服务
type Service struct {
	repo      *repository.Repositories
	secret    []byte
	accessTTL time.Duration
}

// NewService 创建用户服务，secret 为空时随机生成（重启后令牌失效）
func NewService(repo *repository.Repositories, secret string, accessTTL time.Duration) *Service {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		randomBytes := make([]byte, 32)
		if _, err := rand.Read(randomBytes); err != nil {
			panic(fmt.Sprintf("failed to generate JWT secret: %v", err))
		}
		secret = base64.StdEncoding.EncodeToString(randomBytes)
	}
	if accessTTL <= 0 {
		accessTTL = 7 * 24 * time.Hour
	}
	return &Service{repo: repo, secret: []byte(secret), accessTTL: accessTTL}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	UserAccount   string `json:"userAccount"`
	UserPassword  string `json:"userPassword"`
	CheckPassword string `json:"checkPassword"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	UserAccount  string `json:"userAccount"`
	UserPassword string `json:"userPassword"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	User  *model.UserVO `json:"user"`
	Token string        `json:"token"`
}

// Register 注册，返回新用户 ID
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (int64, error) {
	account := strings.TrimSpace(req.UserAccount)
	if account == "" || req.UserPassword == "" || req.CheckPassword == "" {
		return 0, apperr.New(apperr.ValidationFailed, "参数为空")
	}
	if len(account) < minAccountLen {
		return 0, apperr.New(apperr.ValidationFailed, "用户账号过短")
	}
	if len(req.UserPassword) < minPasswordLen || len(req.CheckPassword) < minPasswordLen {
		return 0, apperr.New(apperr.ValidationFailed, "用户密码过短")
	}
	if req.UserPassword != req.CheckPassword {
		return 0, apperr.New(apperr.ValidationFailed, "两次输入的密码不一致")
	}

	exists, err := s.repo.User.ExistsAccount(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		return 0, apperr.New(apperr.ValidationFailed, "账号重复")
	}

	// 哈希密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.UserPassword), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		UserAccount:  account,
		UserPassword: string(hashedPassword),
		UserName:     defaultUser,
		UserRole:     model.UserRoleUser,
	}
	if err := s.repo.User.CreateUser(ctx, user); err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return user.ID, nil
}

// Login 登录
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	account := strings.TrimSpace(req.UserAccount)
	if account == "" || req.UserPassword == "" {
		return nil, apperr.New(apperr.ValidationFailed, "参数为空")
	}

	user, err := s.repo.User.GetUserByAccount(ctx, account)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.New(apperr.ValidationFailed, "用户不存在或密码错误")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(user.UserPassword), []byte(req.UserPassword)); err != nil {
		return nil, apperr.New(apperr.ValidationFailed, "用户不存在或密码错误")
	}

	token, err := s.generateToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{User: user.ToVO(), Token: token}, nil
}

// ValidateToken 校验令牌并返回登录用户
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*model.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.New(apperr.NotLogin, "令牌无效或已过期")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apperr.New(apperr.NotLogin, "令牌无效")
	}
	// JSON 数字解析为 float64
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, apperr.New(apperr.NotLogin, "令牌无效")
	}

	// 检查令牌是否被撤销
	if _, err := s.repo.User.GetTokenByValue(ctx, tokenString); err != nil {
		return nil, apperr.New(apperr.NotLogin, "令牌已注销")
	}

	user, err := s.repo.User.GetUserByID(ctx, int64(rawID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.New(apperr.NotLogin, "用户不存在")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// Logout 注销令牌
func (s *Service) Logout(ctx context.Context, tokenString string) error {
	record, err := s.repo.User.GetTokenByValue(ctx, tokenString)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperr.New(apperr.NotLogin, "未登录")
		}
		return fmt.Errorf("failed to get token: %w", err)
	}
	return s.repo.User.RevokeToken(ctx, record.ID)
}

// GetByID 获取用户
func (s *Service) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if id <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "用户ID不能为空")
	}
	user, err := s.repo.User.GetUserByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "用户不存在")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// UpdateProfileRequest 更新资料请求
type UpdateProfileRequest struct {
	UserName    *string `json:"userName"`
	UserAvatar  *string `json:"userAvatar"`
	UserProfile *string `json:"userProfile"`
}

// UpdateProfile 更新登录用户资料
func (s *Service) UpdateProfile(ctx context.Context, loginUser *model.User, req *UpdateProfileRequest) (*model.User, error) {
	if loginUser == nil {
		return nil, apperr.New(apperr.NotLogin, "未登录")
	}
	user, err := s.GetByID(ctx, loginUser.ID)
	if err != nil {
		return nil, err
	}
	if req.UserName != nil {
		user.UserName = *req.UserName
	}
	if req.UserAvatar != nil {
		user.UserAvatar = *req.UserAvatar
	}
	if req.UserProfile != nil {
		user.UserProfile = *req.UserProfile
	}
	if err := s.repo.User.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// ListUsers 管理员分页查询用户
func (s *Service) ListUsers(ctx context.Context, req types.PageRequest) (*types.Page[*model.UserVO], error) {
	page := req.Normalize(10, 50)
	users, total, err := s.repo.User.ListUsers(ctx, page.Offset(), page.PageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	records := make([]*model.UserVO, 0, len(users))
	for _, u := range users {
		records = append(records, u.ToVO())
	}
	return &types.Page[*model.UserVO]{Records: records, Total: total, PageNum: page.PageNum, PageSize: page.PageSize}, nil
}

// generateToken 生成访问令牌并持久化，用于注销撤销
func (s *Service) generateToken(ctx context.Context, user *model.User) (string, error) {
	now := time.Now()
	expiresAt := now.Add(s.accessTTL)
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"role":    string(user.UserRole),
		"exp":     expiresAt.Unix(),
		"iat":     now.Unix(),
		"jti":     uuid.New().String(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	record := &model.AuthToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	if err := s.repo.User.CreateToken(ctx, record); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}
	return token, nil
}
