// Package app 应用管理与对话生成
package app

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ashwinyue/next-coder/internal/apperr"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/model"
	"github.com/ashwinyue/next-coder/internal/repository"
	"github.com/ashwinyue/next-coder/internal/service/chathistory"
	"github.com/ashwinyue/next-coder/internal/service/codegen"
	"github.com/ashwinyue/next-coder/internal/service/types"
)

const (
	maxAppNameLen    = 80
	maxInitPromptLen = 8192
	maxUserPageSize  = 20
)

// Deployer 部署应用
type Deployer interface {
	Deploy(ctx context.Context, appID int64, loginUser *model.User) (string, error)
}

// GeneratorInvalidator 移除应用的生成服务缓存
type GeneratorInvalidator interface {
	Invalidate(appID int64)
}

// Service 应用服务
type Service struct {
	repo       *repository.Repositories
	history    *chathistory.Service
	facade     *codegen.Facade
	generators GeneratorInvalidator
	deployer   Deployer
	locks      *keyedLock
	log        *logger.Logger
}

// NewService 创建应用服务
func NewService(repo *repository.Repositories, history *chathistory.Service, facade *codegen.Facade,
	generators GeneratorInvalidator, deployer Deployer, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		history:    history,
		facade:     facade,
		generators: generators,
		deployer:   deployer,
		locks:      newKeyedLock(),
		log:        log,
	}
}

// AddRequest 创建应用请求
type AddRequest struct {
	AppName     string `json:"appName"`
	InitPrompt  string `json:"initPrompt"`
	CodeGenType string `json:"codeGenType"`
	Cover       string `json:"cover"`
}

// UpdateRequest 修改自己的应用，只支持修改名称
type UpdateRequest struct {
	ID      int64  `json:"id"`
	AppName string `json:"appName"`
}

// AdminUpdateRequest 管理员修改应用
type AdminUpdateRequest struct {
	ID       int64  `json:"id"`
	AppName  string `json:"appName"`
	Cover    string `json:"cover"`
	Priority *int   `json:"priority"`
}

// QueryRequest 应用列表查询
type QueryRequest struct {
	types.PageRequest
	ID          int64  `json:"id"`
	AppName     string `json:"appName"`
	Cover       string `json:"cover"`
	InitPrompt  string `json:"initPrompt"`
	CodeGenType string `json:"codeGenType"`
	DeployKey   string `json:"deployKey"`
	Priority    *int   `json:"priority"`
	UserID      int64  `json:"userId"`
}

// ValidateApp 校验应用字段，add 为 true 时名称与初始提示词必填
func ValidateApp(appName, initPrompt string, add bool) error {
	if add {
		if strings.TrimSpace(appName) == "" {
			return apperr.New(apperr.ValidationFailed, "应用名称不能为空")
		}
		if strings.TrimSpace(initPrompt) == "" {
			return apperr.New(apperr.ValidationFailed, "应用初始化提示词不能为空")
		}
	}
	if strings.TrimSpace(appName) != "" && utf8.RuneCountInString(appName) > maxAppNameLen {
		return apperr.New(apperr.ValidationFailed, "应用名称过长")
	}
	if strings.TrimSpace(initPrompt) != "" && utf8.RuneCountInString(initPrompt) > maxInitPromptLen {
		return apperr.New(apperr.ValidationFailed, "应用初始化提示词过长")
	}
	return nil
}

// Add 创建应用，返回应用 ID
func (s *Service) Add(ctx context.Context, req *AddRequest, loginUser *model.User) (int64, error) {
	if loginUser == nil {
		return 0, apperr.New(apperr.NotLogin, "未登录")
	}
	if err := ValidateApp(req.AppName, req.InitPrompt, true); err != nil {
		return 0, err
	}

	genType := model.CodeGenTypeMultiFile
	if req.CodeGenType != "" {
		t, ok := model.ParseCodeGenType(req.CodeGenType)
		if !ok {
			return 0, apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", req.CodeGenType)
		}
		genType = t
	}

	app := &model.App{
		AppName:     strings.TrimSpace(req.AppName),
		InitPrompt:  req.InitPrompt,
		CodeGenType: genType,
		Cover:       req.Cover,
		UserID:      loginUser.ID,
	}
	if err := s.repo.App.Create(ctx, app); err != nil {
		return 0, fmt.Errorf("failed to create app: %w", err)
	}
	s.log.Info("app created", "app_id", app.ID, "user_id", loginUser.ID, "gen_type", genType)
	return app.ID, nil
}

// Get 获取应用
func (s *Service) Get(ctx context.Context, id int64) (*model.App, error) {
	if id <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "应用 ID 不能为空")
	}
	app, err := s.repo.App.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperr.New(apperr.NotFound, "应用不存在")
		}
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return app, nil
}

// getOwned 获取应用并校验归属
func (s *Service) getOwned(ctx context.Context, id int64, loginUser *model.User) (*model.App, error) {
	if loginUser == nil {
		return nil, apperr.New(apperr.NotLogin, "未登录")
	}
	app, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.IsOwnedBy(loginUser.ID) {
		return nil, apperr.New(apperr.AuthorizationFailed, "无权限操作该应用")
	}
	return app, nil
}

// Update 修改自己的应用名称
func (s *Service) Update(ctx context.Context, req *UpdateRequest, loginUser *model.User) error {
	if err := ValidateApp(req.AppName, "", false); err != nil {
		return err
	}
	if _, err := s.getOwned(ctx, req.ID, loginUser); err != nil {
		return err
	}
	if strings.TrimSpace(req.AppName) == "" {
		return nil
	}
	if err := s.repo.App.Updates(ctx, req.ID, map[string]interface{}{"app_name": strings.TrimSpace(req.AppName)}); err != nil {
		return fmt.Errorf("failed to update app: %w", err)
	}
	return nil
}

// Delete 删除自己的应用
func (s *Service) Delete(ctx context.Context, id int64, loginUser *model.User) error {
	if _, err := s.getOwned(ctx, id, loginUser); err != nil {
		return err
	}
	return s.remove(ctx, id)
}

// DeleteByAdmin 删除任意应用
func (s *Service) DeleteByAdmin(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.remove(ctx, id)
}

// remove 删除应用并关联删除对话历史与生成服务缓存
func (s *Service) remove(ctx context.Context, id int64) error {
	if err := s.history.DeleteByAppID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.App.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete app: %w", err)
	}
	s.generators.Invalidate(id)
	s.log.Info("app deleted", "app_id", id)
	return nil
}

// UpdateByAdmin 管理员修改名称、封面、优先级
func (s *Service) UpdateByAdmin(ctx context.Context, req *AdminUpdateRequest) error {
	if err := ValidateApp(req.AppName, "", false); err != nil {
		return err
	}
	if _, err := s.Get(ctx, req.ID); err != nil {
		return err
	}

	fields := map[string]interface{}{}
	if name := strings.TrimSpace(req.AppName); name != "" {
		fields["app_name"] = name
	}
	if req.Cover != "" {
		fields["cover"] = req.Cover
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}
	if len(fields) == 0 {
		return nil
	}
	if err := s.repo.App.Updates(ctx, req.ID, fields); err != nil {
		return fmt.Errorf("failed to update app: %w", err)
	}
	return nil
}

// ListMine 分页查询自己的应用，每页最多 20 个
func (s *Service) ListMine(ctx context.Context, req *QueryRequest, loginUser *model.User) (*types.Page[*model.App], error) {
	if loginUser == nil {
		return nil, apperr.New(apperr.NotLogin, "未登录")
	}
	q := *req
	q.UserID = loginUser.ID
	return s.list(ctx, &q, false, maxUserPageSize)
}

// ListFeatured 分页查询精选应用，每页最多 20 个
func (s *Service) ListFeatured(ctx context.Context, req *QueryRequest) (*types.Page[*model.App], error) {
	q := QueryRequest{PageRequest: req.PageRequest, AppName: req.AppName}
	return s.list(ctx, &q, true, maxUserPageSize)
}

// ListByAdmin 管理员分页查询
func (s *Service) ListByAdmin(ctx context.Context, req *QueryRequest) (*types.Page[*model.App], error) {
	return s.list(ctx, req, false, 0)
}

func (s *Service) list(ctx context.Context, req *QueryRequest, featured bool, maxSize int) (*types.Page[*model.App], error) {
	page := req.PageRequest.Normalize(10, maxSize)
	apps, total, err := s.repo.App.List(ctx, repository.AppQuery{
		ID:          req.ID,
		AppName:     req.AppName,
		Cover:       req.Cover,
		InitPrompt:  req.InitPrompt,
		CodeGenType: model.CodeGenType(req.CodeGenType),
		DeployKey:   req.DeployKey,
		Priority:    req.Priority,
		UserID:      req.UserID,
		Featured:    featured,
		Offset:      page.Offset(),
		Limit:       page.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}
	return &types.Page[*model.App]{Records: apps, Total: total, PageNum: page.PageNum, PageSize: page.PageSize}, nil
}

// ChatToGenCode 对话生成代码，返回流式片段
// 同一应用的对话轮次串行执行，上一轮的回复落库后下一轮才开始
func (s *Service) ChatToGenCode(ctx context.Context, appID int64, message string, loginUser *model.User) (<-chan codegen.Chunk, error) {
	if appID <= 0 {
		return nil, apperr.New(apperr.ValidationFailed, "应用 ID 不能为空")
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperr.New(apperr.ValidationFailed, "用户消息不能为空")
	}
	app, err := s.getOwned(ctx, appID, loginUser)
	if err != nil {
		return nil, err
	}
	if !app.CodeGenType.Valid() {
		return nil, apperr.Newf(apperr.UnsupportedType, "不支持的代码生成类型: %s", app.CodeGenType)
	}

	release, err := s.locks.Acquire(ctx, appID)
	if err != nil {
		return nil, err
	}

	if _, err := s.history.AddChatMessage(ctx, appID, message, string(model.MessageTypeUser), loginUser.ID, nil); err != nil {
		release()
		return nil, err
	}

	userID := loginUser.ID
	hook := func(res codegen.StreamResult) {
		defer release()
		s.recordReply(context.WithoutCancel(ctx), appID, userID, res)
	}

	ch, err := s.facade.GenerateAndSaveCodeStream(ctx, message, app.CodeGenType, appID, codegen.WithResultHook(hook))
	if err != nil {
		s.recordReply(context.WithoutCancel(ctx), appID, userID, codegen.StreamResult{Status: codegen.StateFailed, Err: err})
		release()
		return nil, err
	}
	return ch, nil
}

// recordReply 记录 AI 回复，失败只记录日志
func (s *Service) recordReply(ctx context.Context, appID, userID int64, res codegen.StreamResult) {
	var reply string
	switch res.Status {
	case codegen.StateFailed:
		reply = "AI回复失败: " + res.Err.Error()
	case codegen.StateCancelled:
		s.log.Info("chat turn cancelled, reply not recorded", "app_id", appID)
		return
	default:
		reply = res.Text
	}
	if strings.TrimSpace(reply) == "" {
		return
	}
	if _, err := s.history.AddChatMessage(ctx, appID, reply, string(model.MessageTypeAI), userID, nil); err != nil {
		s.log.Error("failed to record ai reply", "app_id", appID, "error", err)
	}
}

// Deploy 部署应用
func (s *Service) Deploy(ctx context.Context, appID int64, loginUser *model.User) (string, error) {
	return s.deployer.Deploy(ctx, appID, loginUser)
}
