package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// StaticHandler 部署站点与生成结果的静态访问
type StaticHandler struct {
	deployRoot string
	outputRoot string
}

// NewStaticHandler 创建静态资源处理器
func NewStaticHandler(deployRoot, outputRoot string) *StaticHandler {
	return &StaticHandler{deployRoot: deployRoot, outputRoot: outputRoot}
}

// Deployed GET /static/:deployKey/*filepath
func (h *StaticHandler) Deployed(c *gin.Context) {
	h.serve(c, h.deployRoot, c.Param("deployKey"))
}

// Preview GET /preview/:dir/*filepath
func (h *StaticHandler) Preview(c *gin.Context) {
	h.serve(c, h.outputRoot, c.Param("dir"))
}

func (h *StaticHandler) serve(c *gin.Context, root, dir string) {
	if dir == "" || strings.ContainsAny(dir, `/\`) || dir == "." || dir == ".." {
		c.Status(http.StatusNotFound)
		return
	}

	// 以 / 开头再 Clean，防止越出目录
	rel := filepath.Clean("/" + c.Param("filepath"))
	if strings.HasSuffix(c.Param("filepath"), "/") || rel == "/" {
		rel = filepath.Join(rel, "index.html")
	}
	full := filepath.Join(root, dir, rel)

	info, err := os.Stat(full)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	if info.IsDir() {
		full = filepath.Join(full, "index.html")
		if _, err := os.Stat(full); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
	}
	c.File(full)
}
