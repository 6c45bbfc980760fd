package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
	"github.com/hieplh/ata-sample-webapp/pkg/storage"
)

// TaskRunner 提交后台任务（提交事务之后执行，失败只记日志）
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error) error
}

// IdentityClient 人脸识别服务
type IdentityClient interface {
	Register(ctx context.Context, identificationID string, subject interface{}, files []identity.File) error
	Update(ctx context.Context, identificationID string, images []identity.ImageUpdate) error
	Verify(ctx context.Context, identificationID string, image identity.File) error
	Delete(ctx context.Context, identificationID string) error
	ListImages(ctx context.Context, identificationID string) ([]map[string]interface{}, error)
}

// ActivationMailer 发送激活邮件
type ActivationMailer interface {
	SendActivation(ctx context.Context, email, username string, otp int) error
}

// Dependencies 构建 Service 所需的外部依赖
type Dependencies struct {
	Config   *config.Config
	Repo     *repository.Repository
	JWT      *jwt.Manager
	Images   *storage.ImageStore
	Identity IdentityClient
	Mailer   ActivationMailer
	Tasks    TaskRunner
	Logger   *zap.Logger
	// Now 为空时使用 time.Now().UTC()
	Now func() time.Time
}

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Registration RegistrationService
	User         UserService
	Department   DepartmentService
	Role         RoleService
	Form         FormService
	Export       ExportService
	Calendar     CalendarService
}

// NewService 创建 Service 聚合
func NewService(deps Dependencies) *Service {
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		Auth:         NewAuthService(deps),
		Registration: NewRegistrationService(deps),
		User:         NewUserService(deps),
		Department:   NewDepartmentService(deps.Repo, deps.Logger),
		Role:         NewRoleService(deps.Repo, deps.Logger),
		Form:         NewFormService(deps),
		Export:       NewExportService(deps.Repo, deps.Logger),
		Calendar:     NewCalendarService(deps.Repo, deps.Logger, location(deps.Config, deps.Logger)),
	}
}

// submit 提交后台任务，队列满或已关闭时记录日志
func submit(tasks TaskRunner, logger *zap.Logger, name string, fn func(ctx context.Context) error) {
	if tasks == nil {
		return
	}
	if err := tasks.Submit(name, fn); err != nil {
		logger.Error("提交后台任务失败", zap.String("task", name), zap.Error(err))
	}
}

// location 表单明细时间所在时区，取数据库时区配置
func location(cfg *config.Config, logger *zap.Logger) *time.Location {
	if cfg == nil || cfg.Database.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Database.Timezone)
	if err != nil {
		logger.Warn("加载时区失败，使用 UTC", zap.String("timezone", cfg.Database.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}
