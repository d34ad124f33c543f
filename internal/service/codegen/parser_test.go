package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		lang    Lang
		want    string
		found   bool
	}{
		{"html fence", "说明\n```html\n<p>hi</p>\n```\n结尾", LangHTML, "<p>hi</p>", true},
		{"upper case tag", "```HTML\n<div></div>\n```", LangHTML, "<div></div>", true},
		{"css fence", "```css\nbody{margin:0}\n```", LangCSS, "body{margin:0}", true},
		{"javascript alias", "```javascript\nconsole.log(1)\n```", LangJS, "console.log(1)", true},
		{"js fence", "```js\nlet a = 1\n```", LangJS, "let a = 1", true},
		{"missing fence", "no code here", LangCSS, "", false},
		{"first block wins", "```html\n<a></a>\n```\n```html\n<b></b>\n```", LangHTML, "<a></a>", true},
		{"unknown lang", "```go\nx\n```", Lang("go"), "", false},
		{"unterminated fence", "```html\n<p>cut", LangHTML, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCode(tt.content, tt.lang)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHTML_FallsBackToWholeText(t *testing.T) {
	r := ParseHTML("  <html><body>raw</body></html>\n")
	assert.Equal(t, "<html><body>raw</body></html>", r.HTMLCode)

	r = ParseHTML("前言\n```html\n<p>x</p>\n```")
	assert.Equal(t, "<p>x</p>", r.HTMLCode)

	// 流被截断、代码块没有闭合时整段原样保留，包括开头的 ```html
	r = ParseHTML("```html\n<p>cut")
	assert.Equal(t, "```html\n<p>cut", r.HTMLCode)
}

func TestParseMultiFile(t *testing.T) {
	content := "```html\n<p>x</p>\n```\n```css\np{color:red}\n```\n```js\nalert(1)\n```"
	r := ParseMultiFile(content)
	assert.Equal(t, "<p>x</p>", r.HTMLCode)
	assert.Equal(t, "p{color:red}", r.CSSCode)
	assert.Equal(t, "alert(1)", r.JSCode)

	// 缺失的代码块为空
	r = ParseMultiFile("```html\n<p>only</p>\n```")
	assert.Equal(t, "<p>only</p>", r.HTMLCode)
	assert.Empty(t, r.CSSCode)
	assert.Empty(t, r.JSCode)
}

func TestParse_UnsupportedType(t *testing.T) {
	_, err := Parse("x", model.CodeGenType("VUE"))
	require.Error(t, err)
	assert.Equal(t, apperr.UnsupportedType, apperr.KindOf(err))

	r, err := Parse("```html\n<p>x</p>\n```", model.CodeGenTypeHTML)
	require.NoError(t, err)
	assert.Equal(t, model.CodeGenTypeHTML, r.GenType())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(&HTMLCodeResult{HTMLCode: "<p></p>"}))
	assert.True(t, apperr.KindOf(Validate(&HTMLCodeResult{HTMLCode: "  "})) == apperr.ValidationFailed)
	assert.True(t, apperr.KindOf(Validate(&MultiFileCodeResult{CSSCode: "a{}"})) == apperr.ValidationFailed)
	assert.True(t, apperr.KindOf(Validate(nil)) == apperr.ValidationFailed)
}
