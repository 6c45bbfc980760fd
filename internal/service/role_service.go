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

var (
	ErrRoleNotFound       = errors.New("Role not found")
	ErrPermissionNotFound = errors.New("Permission not found")
)

// RoleService 角色与权限
type RoleService interface {
	Create(ctx context.Context, req *dto.CreateRoleRequest) (*model.Role, error)
	GetByName(ctx context.Context, name string) (*model.Role, error)
	List(ctx context.Context) ([]model.Role, error)
	ListPermissions(ctx context.Context) ([]model.Permission, error)
	GetPermission(ctx context.Context, name string) (*model.Permission, error)
}

type roleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewRoleService 创建 RoleService 实例
func NewRoleService(repo *repository.Repository, logger *zap.Logger) RoleService {
	return &roleService{repo: repo, logger: logger}
}

// Create 角色与 RolePermission 在同一事务中写入
func (s *roleService) Create(ctx context.Context, req *dto.CreateRoleRequest) (*model.Role, error) {
	codes := uniqueStrings(req.Permissions)

	role := &model.Role{
		Name:        req.Name,
		Description: req.Description,
	}
	for _, code := range codes {
		role.Permissions = append(role.Permissions, model.RolePermission{
			Role:       req.Name,
			Permission: code,
		})
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		n, err := tx.Permission.CountByIDs(ctx, codes)
		if err != nil {
			return err
		}
		if n != int64(len(codes)) {
			return ErrPermissionNotFound
		}
		return tx.Role.Create(ctx, role)
	})
	if err != nil {
		s.logger.Warn("创建角色失败", zap.String("name", req.Name), zap.Error(err))
		return nil, pkgerrors.Domain(err)
	}
	return role, nil
}

func (s *roleService) GetByName(ctx context.Context, name string) (*model.Role, error) {
	role, err := s.repo.Role.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return role, nil
}

func (s *roleService) List(ctx context.Context) ([]model.Role, error) {
	return s.repo.Role.List(ctx)
}

func (s *roleService) ListPermissions(ctx context.Context) ([]model.Permission, error) {
	return s.repo.Permission.List(ctx)
}

func (s *roleService) GetPermission(ctx context.Context, name string) (*model.Permission, error) {
	p, err := s.repo.Permission.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPermissionNotFound
		}
		return nil, err
	}
	return p, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
