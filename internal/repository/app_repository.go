package repository

import (
	"context"
	"time"

	"github.com/ashwinyue/next-coder/internal/model"
	"gorm.io/gorm"
)

// AppQuery 应用列表查询条件
type AppQuery struct {
	ID          int64
	AppName     string // 模糊匹配
	Cover       string
	InitPrompt  string // 模糊匹配
	CodeGenType model.CodeGenType
	DeployKey   string
	Priority    *int
	UserID      int64
	Featured    bool // 仅精选（priority > 0）
	Offset      int
	Limit       int
}

// AppRepository 应用数据访问
type AppRepository struct {
	db *gorm.DB
}

// NewAppRepository 创建应用仓库
func NewAppRepository(db *gorm.DB) *AppRepository {
	return &AppRepository{db: db}
}

// Create 创建应用
func (r *AppRepository) Create(ctx context.Context, app *model.App) error {
	return r.db.WithContext(ctx).Create(app).Error
}

// GetByID 获取应用
func (r *AppRepository) GetByID(ctx context.Context, id int64) (*model.App, error) {
	var app model.App
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Updates 按字段更新应用
func (r *AppRepository) Updates(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.App{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateDeploy 记录部署信息
func (r *AppRepository) UpdateDeploy(ctx context.Context, id int64, deployKey string, deployedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&model.App{}).Where("id = ?", id).Updates(map[string]interface{}{
		"deploy_key":    deployKey,
		"deployed_time": deployedAt,
	}).Error
}

// ExistsDeployKey 部署标识是否已被占用
func (r *AppRepository) ExistsDeployKey(ctx context.Context, deployKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&model.App{}).
		Where("deploy_key = ?", deployKey).Count(&count).Error
	return count > 0, err
}

// GetByDeployKey 根据部署标识获取应用
func (r *AppRepository) GetByDeployKey(ctx context.Context, deployKey string) (*model.App, error) {
	var app model.App
	err := r.db.WithContext(ctx).Where("deploy_key = ?", deployKey).First(&app).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// Delete 删除应用（软删除）
func (r *AppRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.App{}, "id = ?", id).Error
}

// List 分页查询应用，按优先级、创建时间倒序
func (r *AppRepository) List(ctx context.Context, q AppQuery) ([]*model.App, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.App{})
	if q.ID > 0 {
		query = query.Where("id = ?", q.ID)
	}
	if q.AppName != "" {
		query = query.Where("app_name LIKE ?", "%"+q.AppName+"%")
	}
	if q.Cover != "" {
		query = query.Where("cover = ?", q.Cover)
	}
	if q.InitPrompt != "" {
		query = query.Where("init_prompt LIKE ?", "%"+q.InitPrompt+"%")
	}
	if q.CodeGenType != "" {
		query = query.Where("code_gen_type = ?", q.CodeGenType)
	}
	if q.DeployKey != "" {
		query = query.Where("deploy_key = ?", q.DeployKey)
	}
	if q.Priority != nil {
		query = query.Where("priority = ?", *q.Priority)
	}
	if q.UserID > 0 {
		query = query.Where("user_id = ?", q.UserID)
	}
	if q.Featured {
		query = query.Where("priority > ?", 0)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var apps []*model.App
	err := query.Order("priority DESC").Order("created_at DESC").
		Offset(q.Offset).Limit(q.Limit).Find(&apps).Error
	return apps, total, err
}
