// Package deploy 把生成代码发布到部署目录
package deploy

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/metrics"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
)

const (
	keyLength      = 6
	keyAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	maxKeyAttempts = 5
)

// Config 部署配置
type Config struct {
	OutputRoot string // 生成代码根目录
	DeployRoot string // 部署根目录
	DeployHost string // 访问域名
}

// Manager 部署管理
type Manager struct {
	apps   *repository.AppRepository
	cfg    Config
	log    *logger.Logger
	newKey func() (string, error)
}

// NewManager 创建部署管理
func NewManager(apps *repository.AppRepository, cfg Config, log *logger.Logger) *Manager {
	return &Manager{apps: apps, cfg: cfg, log: log, newKey: randomKey}
}

// Deploy 部署应用，返回访问地址 {host}/{deployKey}/
// 已有部署标识时复用，目录内容总是覆盖
func (m *Manager) Deploy(ctx context.Context, appID int64, loginUser *model.User) (string, error) {
	url, err := m.deploy(ctx, appID, loginUser)
	status := "success"
	if err != nil {
		status = string(apperr.KindOf(err))
		if status == "" {
			status = "error"
		}
	}
	metrics.DeploysTotal.WithLabelValues(status).Inc()
	return url, err
}

func (m *Manager) deploy(ctx context.Context, appID int64, loginUser *model.User) (string, error) {
	if appID <= 0 {
		return "", apperr.New(apperr.ValidationFailed, "应用 ID 不能为空")
	}
	if loginUser == nil {
		return "", apperr.New(apperr.NotLogin, "未登录")
	}

	app, err := m.apps.GetByID(ctx, appID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", apperr.New(apperr.NotFound, "应用不存在")
		}
		return "", fmt.Errorf("failed to get app: %w", err)
	}
	if !app.IsOwnedBy(loginUser.ID) {
		return "", apperr.New(apperr.AuthorizationFailed, "无权限部署该应用")
	}

	sourceDir := filepath.Join(m.cfg.OutputRoot, codegen.DirName(app.CodeGenType, appID))
	info, err := os.Stat(sourceDir)
	if err != nil || !info.IsDir() {
		return "", apperr.New(apperr.SourceNotFound, "应用代码不存在，请先生成代码")
	}

	deployKey := app.GetDeployKey()
	if deployKey == "" {
		deployKey, err = m.allocateKey(ctx)
		if err != nil {
			return "", err
		}
	}

	targetDir := filepath.Join(m.cfg.DeployRoot, deployKey)
	if err := os.RemoveAll(targetDir); err != nil {
		return "", apperr.Wrap(apperr.StorageError, err, "清理部署目录失败")
	}
	if err := copyDir(sourceDir, targetDir); err != nil {
		return "", apperr.Wrap(apperr.StorageError, err, "部署失败")
	}

	if err := m.apps.UpdateDeploy(ctx, appID, deployKey, time.Now()); err != nil {
		return "", apperr.Wrap(apperr.StorageError, err, "更新应用部署信息失败")
	}

	url := fmt.Sprintf("%s/%s/", strings.TrimSuffix(m.cfg.DeployHost, "/"), deployKey)
	m.log.Info("app deployed", "app_id", appID, "deploy_key", deployKey, "url", url)
	return url, nil
}

// allocateKey 生成未被占用的部署标识，数据库或部署目录已存在时重新生成
func (m *Manager) allocateKey(ctx context.Context) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key, err := m.newKey()
		if err != nil {
			return "", apperr.Wrap(apperr.StorageError, err, "生成部署标识失败")
		}

		exists, err := m.apps.ExistsDeployKey(ctx, key)
		if err != nil {
			return "", fmt.Errorf("failed to check deploy key: %w", err)
		}
		if exists {
			m.log.Warn("deploy key collision", "deploy_key", key, "source", "db")
			continue
		}
		if _, err := os.Stat(filepath.Join(m.cfg.DeployRoot, key)); err == nil {
			m.log.Warn("deploy key collision", "deploy_key", key, "source", "dir")
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", apperr.Wrap(apperr.StorageError, err, "检查部署目录失败")
		}
		return key, nil
	}
	return "", apperr.Newf(apperr.StorageError, "部署标识连续 %d 次冲突", maxKeyAttempts)
}

func randomKey() (string, error) {
	b := make([]byte, keyLength)
	max := big.NewInt(int64(len(keyAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = keyAlphabet[n.Int64()]
	}
	return string(b), nil
}

// copyDir 递归复制目录
func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
