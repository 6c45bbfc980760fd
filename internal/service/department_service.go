package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/model"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
)

// ── 部门模块业务错误 ──

var ErrDepartmentNotFound = errors.New("Department not found")

// DepartmentService 部门业务接口
type DepartmentService interface {
	Create(ctx context.Context, req *dto.CreateDepartmentRequest) (*model.Department, error)
	GetByName(ctx context.Context, name string) (*model.Department, error)
	// List 按名称倒序
	List(ctx context.Context) ([]model.Department, error)
}

type departmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewDepartmentService 创建 DepartmentService 实例
func NewDepartmentService(repo *repository.Repository, logger *zap.Logger) DepartmentService {
	return &departmentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *departmentService) Create(ctx context.Context, req *dto.CreateDepartmentRequest) (*model.Department, error) {
	dept := &model.Department{
		Name:        req.Name,
		Description: req.Description,
	}
	// 名称重复时直接返回数据库错误信息
	if err := s.repo.Department.Create(ctx, dept); err != nil {
		s.logger.Warn("创建部门失败", zap.String("name", req.Name), zap.Error(err))
		return nil, pkgerrors.Domain(err)
	}
	return dept, nil
}

// ────────────────────── Get / List ──────────────────────

func (s *departmentService) GetByName(ctx context.Context, name string) (*model.Department, error) {
	dept, err := s.repo.Department.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDepartmentNotFound
		}
		s.logger.Error("查询部门失败", zap.Error(err))
		return nil, err
	}
	return dept, nil
}

func (s *departmentService) List(ctx context.Context) ([]model.Department, error) {
	return s.repo.Department.List(ctx)
}
