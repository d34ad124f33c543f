package codegen

import (
	"regexp"
	"strings"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
)

// Lang 代码块语言
type Lang string

const (
	LangHTML Lang = "html"
	LangCSS  Lang = "css"
	LangJS   Lang = "js"
)

var fencePatterns = map[Lang]*regexp.Regexp{
	LangHTML: regexp.MustCompile("(?i)```html\\s*\\n([\\s\\S]*?)```"),
	LangCSS:  regexp.MustCompile("(?i)```css\\s*\\n([\\s\\S]*?)```"),
	LangJS:   regexp.MustCompile("(?i)```(?:js|javascript)\\s*\\n([\\s\\S]*?)```"),
}

// ExtractCode 提取第一个指定语言的代码块，内容去除首尾空白
func ExtractCode(content string, lang Lang) (string, bool) {
	re, ok := fencePatterns[lang]
	if !ok {
		return "", false
	}
	m := re.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// ParseHTML 解析单文件 HTML；没有代码块时整段文本即为 HTML
func ParseHTML(content string) *HTMLCodeResult {
	code, ok := ExtractCode(content, LangHTML)
	if !ok {
		code = strings.TrimSpace(content)
	}
	return &HTMLCodeResult{HTMLCode: code}
}

// ParseMultiFile 分别解析 HTML/CSS/JS 代码块，缺失的为空字符串
func ParseMultiFile(content string) *MultiFileCodeResult {
	result := &MultiFileCodeResult{}
	result.HTMLCode, _ = ExtractCode(content, LangHTML)
	result.CSSCode, _ = ExtractCode(content, LangCSS)
	result.JSCode, _ = ExtractCode(content, LangJS)
	return result
}

// Parse 按生成类型解析文本
func Parse(content string, genType model.CodeGenType) (CodeResult, error) {
	switch genType {
	case model.CodeGenTypeHTML:
		return ParseHTML(content), nil
	case model.CodeGenTypeMultiFile:
		return ParseMultiFile(content), nil
	default:
		return nil, apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", genType)
	}
}

// Validate 校验结果，HTML 为必填
func Validate(result CodeResult) error {
	switch r := result.(type) {
	case *HTMLCodeResult:
		if strings.TrimSpace(r.HTMLCode) == "" {
			return apperr.New(apperr.ValidationFailed, "HTML代码内容不能为空")
		}
	case *MultiFileCodeResult:
		if strings.TrimSpace(r.HTMLCode) == "" {
			return apperr.New(apperr.ValidationFailed, "HTML代码内容不能为空")
		}
	case nil:
		return apperr.New(apperr.ValidationFailed, "代码结果不能为空")
	default:
		return apperr.Newf(apperr.UnsupportedType, "不支持的代码结果: %T", result)
	}
	return nil
}
