package handler

import (
	"path/filepath"

	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/service"
	"github.com/gin-gonic/gin"
)

// CodeGenHandler 不绑定应用的代码生成
type CodeGenHandler struct {
	svc *service.Services
}

// NewCodeGenHandler 创建代码生成处理器
func NewCodeGenHandler(svc *service.Services) *CodeGenHandler {
	return &CodeGenHandler{svc: svc}
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	Prompt      string `json:"prompt" binding:"required"`
	CodeGenType string `json:"codeGenType"`
}

// GenerateResponse 生成结果
type GenerateResponse struct {
	Dir        string `json:"dir"`
	PreviewURL string `json:"previewUrl"`
}

// Generate 阻塞生成并保存
func (h *CodeGenHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "请求参数错误: "+err.Error())
		return
	}

	genType := model.CodeGenTypeHTML
	if req.CodeGenType != "" {
		genType = model.CodeGenType(req.CodeGenType)
	}

	dir, err := h.svc.CodeGen.GenerateAndSaveCode(c.Request.Context(), req.Prompt, genType)
	if err != nil {
		errorResponse(c, err)
		return
	}

	name := filepath.Base(dir)
	success(c, GenerateResponse{Dir: name, PreviewURL: "/preview/" + name + "/"})
}
