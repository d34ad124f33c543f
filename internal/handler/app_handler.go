package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/middleware"
	"github.com/ashwinyue/next-coder/internal/service"
	"github.com/ashwinyue/next-coder/internal/service/app"
	"github.com/gin-gonic/gin"
)

// AppHandler 应用处理器
type AppHandler struct {
	svc *service.Services
	log *logger.Logger
}

// NewAppHandler 创建应用处理器
func NewAppHandler(svc *service.Services, log *logger.Logger) *AppHandler {
	return &AppHandler{svc: svc, log: log}
}

// Add 创建应用
func (h *AppHandler) Add(c *gin.Context) {
	var req app.AddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	u, _ := middleware.GetCurrentUser(c)
	id, err := h.svc.App.Add(c.Request.Context(), &req, u)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, id)
}

// Update 修改自己的应用
func (h *AppHandler) Update(c *gin.Context) {
	var req app.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "请求参数错误")
		return
	}

	u, _ := middleware.GetCurrentUser(c)
	if err := h.svc.App.Update(c.Request.Context(), &req, u); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, true)
}

// Delete 删除自己的应用
func (h *AppHandler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "请求参数错误")
		return
	}

	u, _ := middleware.GetCurrentUser(c)
	if err := h.svc.App.Delete(c.Request.Context(), req.ID, u); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, true)
}

// Get 查看应用详情
func (h *AppHandler) Get(c *gin.Context) {
	id, _ := strconv.ParseInt(c.Query("id"), 10, 64)
	a, err := h.svc.App.Get(c.Request.Context(), id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, a)
}

// ListMine 分页查询自己的应用
func (h *AppHandler) ListMine(c *gin.Context) {
	var req app.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	u, _ := middleware.GetCurrentUser(c)
	page, err := h.svc.App.ListMine(c.Request.Context(), &req, u)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, page)
}

// ListFeatured 分页查询精选应用
func (h *AppHandler) ListFeatured(c *gin.Context) {
	var req app.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	page, err := h.svc.App.ListFeatured(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, page)
}

// DeleteByAdmin 管理员删除应用
func (h *AppHandler) DeleteByAdmin(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "请求参数错误")
		return
	}

	if err := h.svc.App.DeleteByAdmin(c.Request.Context(), req.ID); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, true)
}

// UpdateByAdmin 管理员修改应用
func (h *AppHandler) UpdateByAdmin(c *gin.Context) {
	var req app.AdminUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID <= 0 {
		badRequest(c, "请求参数错误")
		return
	}

	if err := h.svc.App.UpdateByAdmin(c.Request.Context(), &req); err != nil {
		errorResponse(c, err)
		return
	}
	success(c, true)
}

// ListByAdmin 管理员分页查询应用
func (h *AppHandler) ListByAdmin(c *gin.Context) {
	var req app.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	page, err := h.svc.App.ListByAdmin(c.Request.Context(), &req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, page)
}

// ChatToGenCode 对话生成代码（SSE）
// 每个片段以 {"d": chunk} 发送，结束时发送 done 事件
func (h *AppHandler) ChatToGenCode(c *gin.Context) {
	appID, _ := strconv.ParseInt(c.Query("appId"), 10, 64)
	message := c.Query("message")

	u, _ := middleware.GetCurrentUser(c)
	ch, err := h.svc.App.ChatToGenCode(c.Request.Context(), appID, message, u)
	if err != nil {
		errorResponse(c, err)
		return
	}

	// 设置 SSE 响应头
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	for chunk := range ch {
		if chunk.Err != nil {
			c.SSEvent("error", Response{Code: CodeAIGeneration, Message: chunk.Err.Error()})
			c.Writer.Flush()
			return
		}
		data, err := json.Marshal(map[string]string{"d": chunk.Data})
		if err != nil {
			h.log.Warn("failed to encode chunk", "error", err)
			continue
		}
		c.SSEvent("", string(data))
		c.Writer.Flush()
	}

	if c.Request.Context().Err() != nil {
		return
	}
	c.SSEvent("done", "")
	c.Writer.Flush()
}

// DeployRequest 部署请求
type DeployRequest struct {
	AppID int64 `json:"appId"`
}

// Deploy 部署应用
func (h *AppHandler) Deploy(c *gin.Context) {
	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AppID <= 0 {
		badRequest(c, "应用 ID 不能为空")
		return
	}

	u, _ := middleware.GetCurrentUser(c)
	url, err := h.svc.App.Deploy(c.Request.Context(), req.AppID, u)
	if err != nil {
		errorResponse(c, err)
		return
	}
	success(c, url)
}
