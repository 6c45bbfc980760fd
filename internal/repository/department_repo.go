package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/internal/model"
)

// DepartmentRepository 部门数据访问接口
type DepartmentRepository interface {
	Create(ctx context.Context, dept *model.Department) error
	GetByName(ctx context.Context, name string) (*model.Department, error)
	List(ctx context.Context) ([]model.Department, error)
}

// departmentRepo DepartmentRepository 的 GORM 实现
type departmentRepo struct {
	db *gorm.DB
}

// NewDepartmentRepo 创建 DepartmentRepository 实例
func NewDepartmentRepo(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) Create(ctx context.Context, dept *model.Department) error {
	return r.db.WithContext(ctx).Create(dept).Error
}

func (r *departmentRepo) GetByName(ctx context.Context, name string) (*model.Department, error) {
	var dept model.Department
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&dept).Error
	if err != nil {
		return nil, err
	}
	return &dept, nil
}

// List 按名称倒序
func (r *departmentRepo) List(ctx context.Context) ([]model.Department, error) {
	var depts []model.Department
	err := r.db.WithContext(ctx).
		Order("name DESC").
		Find(&depts).Error
	return depts, err
}
