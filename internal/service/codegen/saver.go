package codegen

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bwmarrin/snowflake"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/model"
)

// 生成文件名
const (
	FileHTML = "index.html"
	FileCSS  = "style.css"
	FileJS   = "script.js"
)

// Saver 代码文件保存器
// 目录结构: {root}/{type}_{appId}/index.html [style.css script.js]
type Saver struct {
	root string
	node *snowflake.Node
}

// NewSaver 创建保存器
func NewSaver(root string) (*Saver, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}
	return &Saver{root: root, node: node}, nil
}

// Root 生成代码根目录
func (s *Saver) Root() string {
	return s.root
}

// DirName 应用生成目录名
func DirName(genType model.CodeGenType, appID int64) string {
	return fmt.Sprintf("%s_%d", genType, appID)
}

// DirFor 应用生成目录
func (s *Saver) DirFor(genType model.CodeGenType, appID int64) string {
	return filepath.Join(s.root, DirName(genType, appID))
}

// Save 保存到应用目录，同一 appID 覆盖写入
func (s *Saver) Save(result CodeResult, appID int64) (string, error) {
	if appID <= 0 {
		return "", apperr.New(apperr.ValidationFailed, "应用 ID 不能为空")
	}
	if err := Validate(result); err != nil {
		return "", err
	}
	dir := s.DirFor(result.GenType(), appID)
	if err := writeResult(dir, result); err != nil {
		return "", err
	}
	return dir, nil
}

// SaveUnique 保存到唯一目录，用于不绑定应用的生成
func (s *Saver) SaveUnique(result CodeResult) (string, error) {
	if err := Validate(result); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, fmt.Sprintf("%s_%s", result.GenType(), s.node.Generate().String()))
	if err := writeResult(dir, result); err != nil {
		return "", err
	}
	return dir, nil
}

func writeResult(dir string, result CodeResult) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.StorageError, err, "创建目录失败")
	}

	files := map[string]string{}
	switch r := result.(type) {
	case *HTMLCodeResult:
		files[FileHTML] = r.HTMLCode
	case *MultiFileCodeResult:
		files[FileHTML] = r.HTMLCode
		files[FileCSS] = r.CSSCode
		files[FileJS] = r.JSCode
	}

	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			return apperr.Wrap(apperr.StorageError, err, fmt.Sprintf("写入文件 %s 失败", name))
		}
	}
	return nil
}
