package model

// CodeGenType 代码生成类型，创建应用时确定
type CodeGenType string

const (
	// CodeGenTypeHTML 原生 HTML 模式（单文件）
	CodeGenTypeHTML CodeGenType = "HTML"
	// CodeGenTypeMultiFile 原生多文件模式（HTML + CSS + JS）
	CodeGenTypeMultiFile CodeGenType = "MULTI_FILE"
)

var codeGenTypeText = map[CodeGenType]string{
	CodeGenTypeHTML:      "原生 HTML 模式",
	CodeGenTypeMultiFile: "原生多文件模式",
}

// ParseCodeGenType 根据 value 获取生成类型
func ParseCodeGenType(value string) (CodeGenType, bool) {
	t := CodeGenType(value)
	if _, ok := codeGenTypeText[t]; !ok {
		return "", false
	}
	return t, true
}

// Valid 是否为已知类型
func (t CodeGenType) Valid() bool {
	_, ok := codeGenTypeText[t]
	return ok
}

// Text 类型描述
func (t CodeGenType) Text() string {
	return codeGenTypeText[t]
}

func (t CodeGenType) String() string {
	return string(t)
}
