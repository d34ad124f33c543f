// Package codegen 代码生成门面：解析 AI 输出、落盘、流式透传
package codegen

import "github.com/ashwinyue/next-coder/internal/model"

// CodeResult 代码生成结果，只有 HTMLCodeResult 与 MultiFileCodeResult 两种
type CodeResult interface {
	GenType() model.CodeGenType
	isCodeResult()
}

// HTMLCodeResult 单文件 HTML 结果
type HTMLCodeResult struct {
	HTMLCode    string `json:"htmlCode"`
	Description string `json:"description,omitempty"`
}

// GenType 生成类型
func (*HTMLCodeResult) GenType() model.CodeGenType { return model.CodeGenTypeHTML }

func (*HTMLCodeResult) isCodeResult() {}

// MultiFileCodeResult 多文件结果，CSS 与 JS 可为空
type MultiFileCodeResult struct {
	HTMLCode    string `json:"htmlCode"`
	CSSCode     string `json:"cssCode"`
	JSCode      string `json:"jsCode"`
	Description string `json:"description,omitempty"`
}

// GenType 生成类型
func (*MultiFileCodeResult) GenType() model.CodeGenType { return model.CodeGenTypeMultiFile }

func (*MultiFileCodeResult) isCodeResult() {}
