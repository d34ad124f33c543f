package handler

import (
	"github.com/ashwinyue/next-coder/internal/middleware"
	"github.com/ashwinyue/next-coder/internal/service"
	"github.com/ashwinyue/next-coder/internal/service/types"
	"github.com/ashwinyue/next-coder/internal/service/user"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	svc *service.Services
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *service.Services) *UserHandler {
	return &UserHandler{svc: svc}
}

// Register 用户注册
func (h *UserHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	id, err := h.svc.User.Register(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, id)
}

// Login 用户登录
func (h *UserHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	resp, err := h.svc.User.Login(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, resp)
}

// GetLoginUser 获取当前登录用户
func (h *UserHandler) GetLoginUser(c *gin.Context) {
	u, _ := middleware.GetCurrentUser(c)
	success(c, u.ToVO())
}

// Logout 用户登出
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.svc.User.Logout(c.Request.Context(), middleware.GetToken(c)); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, true)
}

// UpdateMy 更新自己的资料
func (h *UserHandler) UpdateMy(c *gin.Context) {
	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	u, _ := middleware.GetCurrentUser(c)
	updated, err := h.svc.User.UpdateProfile(c.Request.Context(), u, &req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, updated.ToVO())
}

// ListByAdmin 管理员分页查询用户
func (h *UserHandler) ListByAdmin(c *gin.Context) {
	var req types.PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	page, err := h.svc.User.ListUsers(c.Request.Context(), req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, page)
}
