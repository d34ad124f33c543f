package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/gin-gonic/gin"
)

const (
	ctxUserKey  = "user"
	ctxTokenKey = "token"

	codeNotLogin = 40100
	codeNoAuth   = 40101
)

// TokenValidator 令牌校验
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.User, error)
}

// bearerToken 从 Authorization 头取出 Bearer Token
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// OptionalAuth 提供了有效令牌时设置登录用户，否则匿名放行
func OptionalAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := v.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set(ctxUserKey, user)
				c.Set(ctxTokenKey, token)
			}
		}
		c.Next()
	}
}

// RequireAuth 要求有效认证的中间件
// 必须提供有效的 JWT token，否则返回 401
func RequireAuth(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    codeNotLogin,
				"message": "未登录",
			})
			return
		}

		user, err := v.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    codeNotLogin,
				"message": "令牌无效或已过期",
			})
			return
		}

		// Token 有效，设置用户到上下文
		c.Set(ctxUserKey, user)
		c.Set(ctxTokenKey, token)
		c.Next()
	}
}

// RequireAdmin 要求管理员，须在 RequireAuth 之后使用
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetCurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    codeNotLogin,
				"message": "未登录",
			})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":    codeNoAuth,
				"message": "无权限",
			})
			return
		}
		c.Next()
	}
}

// GetCurrentUser 从上下文获取当前用户
func GetCurrentUser(c *gin.Context) (*model.User, bool) {
	user, exists := c.Get(ctxUserKey)
	if !exists {
		return nil, false
	}
	u, ok := user.(*model.User)
	return u, ok
}

// GetToken 从上下文获取当前令牌
func GetToken(c *gin.Context) string {
	return c.GetString(ctxTokenKey)
}
