package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	User       UserRepository
	ActiveUser ActiveUserRepository
	Token      TokenRepository
	Image      ImageRepository
	Department DepartmentRepository
	Role       RoleRepository
	Permission PermissionRepository
	Form       FormRepository
	FormReason FormReasonRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		User:       NewUserRepo(db),
		ActiveUser: NewActiveUserRepo(db),
		Token:      NewTokenRepo(db),
		Image:      NewImageRepo(db),
		Department: NewDepartmentRepo(db),
		Role:       NewRoleRepo(db),
		Permission: NewPermissionRepo(db),
		Form:       NewFormRepo(db),
		FormReason: NewFormReasonRepo(db),
	}
}

// Transaction 在同一事务中执行 fn，fn 返回错误时整体回滚
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

// Ping 数据库健康检查
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
