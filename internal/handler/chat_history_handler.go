package handler

import (
	"strconv"
	"time"

	"github.com/ashwinyue/next-coder/internal/middleware"
	"github.com/ashwinyue/next-coder/internal/service"
	"github.com/ashwinyue/next-coder/internal/service/chathistory"
	"github.com/gin-gonic/gin"
)

// ChatHistoryHandler 对话历史处理器
type ChatHistoryHandler struct {
	svc *service.Services
}

// NewChatHistoryHandler 创建对话历史处理器
func NewChatHistoryHandler(svc *service.Services) *ChatHistoryHandler {
	return &ChatHistoryHandler{svc: svc}
}

// ListAppChatHistory 游标分页查询应用对话历史
// GET /chatHistory/app/:appId?pageSize=10&lastCreateTime=2006-01-02T15:04:05Z
func (h *ChatHistoryHandler) ListAppChatHistory(c *gin.Context) {
	appID, err := strconv.ParseInt(c.Param("appId"), 10, 64)
	if err != nil {
		badRequest(c, "应用ID不能为空")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "10"))
	if err != nil {
		badRequest(c, "页面大小错误")
		return
	}

	var lastCreateTime *time.Time
	if raw := c.Query("lastCreateTime"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			badRequest(c, "游标时间格式错误")
			return
		}
		lastCreateTime = &t
	}

	u, _ := middleware.GetCurrentUser(c)
	page, err := h.svc.ChatHistory.ListAppChatHistoryByPage(c.Request.Context(), appID, pageSize, lastCreateTime, u)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, page)
}

// ListAllByAdmin 管理员分页查询全部对话历史
func (h *ChatHistoryHandler) ListAllByAdmin(c *gin.Context) {
	var req chathistory.AdminQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	page, err := h.svc.ChatHistory.ListAllByAdmin(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, page)
}
