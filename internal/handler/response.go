package handler

import (
	"net/http"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/gin-gonic/gin"
)

// 响应码
const (
	CodeSuccess      = 0
	CodeParams       = 40000
	CodeNotLogin     = 40100
	CodeNoAuth       = 40101
	CodeNotFound     = 40400
	CodeSystem       = 50000
	CodeOperation    = 50001
	CodeAIGeneration = 50002
)

// Response 统一响应
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// DeleteRequest 按 ID 删除
type DeleteRequest struct {
	ID int64 `json:"id"`
}

// success 成功响应
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: CodeSuccess, Message: "ok", Data: data})
}

// fail 错误响应
func fail(c *gin.Context, status, code int, msg string) {
	c.JSON(status, Response{Code: code, Message: msg})
}

// badRequest 参数错误
func badRequest(c *gin.Context, msg string) {
	fail(c, http.StatusBadRequest, CodeParams, msg)
}

// errorResponse 根据错误分类返回响应
func errorResponse(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	status, code := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError && apperr.KindOf(err) == "" {
		msg = "系统内部异常"
	}
	fail(c, status, code, msg)
}

func statusOf(err error) (int, int) {
	switch apperr.KindOf(err) {
	case apperr.ValidationFailed, apperr.UnsupportedType:
		return http.StatusBadRequest, CodeParams
	case apperr.NotLogin:
		return http.StatusUnauthorized, CodeNotLogin
	case apperr.AuthorizationFailed:
		return http.StatusForbidden, CodeNoAuth
	case apperr.NotFound, apperr.SourceNotFound:
		return http.StatusNotFound, CodeNotFound
	case apperr.StorageError:
		return http.StatusInternalServerError, CodeOperation
	case apperr.GenerationFailed:
		return http.StatusBadGateway, CodeAIGeneration
	}
	return http.StatusInternalServerError, CodeSystem
}
