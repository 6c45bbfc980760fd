package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/hieplh/ata-sample-webapp/internal/model"
)

// RoleRepository 角色数据访问接口
type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	GetByName(ctx context.Context, name string) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepo 创建 RoleRepository 实例
func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

// Create 同时写入 role_permission
func (r *roleRepo) Create(ctx context.Context, role *model.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

func (r *roleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("name = ?", name).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepo) List(ctx context.Context) ([]model.Role, error) {
	var roles []model.Role
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Order("id ASC").
		Find(&roles).Error
	return roles, err
}

// PermissionRepository 权限数据访问接口
type PermissionRepository interface {
	List(ctx context.Context) ([]model.Permission, error)
	GetByName(ctx context.Context, name string) (*model.Permission, error)
	CountByIDs(ctx context.Context, ids []string) (int64, error)
}

type permissionRepo struct {
	db *gorm.DB
}

// NewPermissionRepo 创建 PermissionRepository 实例
func NewPermissionRepo(db *gorm.DB) PermissionRepository {
	return &permissionRepo{db: db}
}

func (r *permissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.db.WithContext(ctx).Order("id ASC").Find(&perms).Error
	return perms, err
}

func (r *permissionRepo) GetByName(ctx context.Context, name string) (*model.Permission, error) {
	var perm model.Permission
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&perm).Error
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepo) CountByIDs(ctx context.Context, ids []string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Permission{}).
		Where("id IN ?", ids).
		Count(&n).Error
	return n, err
}
