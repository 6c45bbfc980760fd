package handler

import "github.com/hieplh/ata-sample-webapp/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth       *AuthHandler
	User       *UserHandler
	Department *DepartmentHandler
	Role       *RoleHandler
	Form       *FormHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:       NewAuthHandler(svc.Auth, svc.Registration),
		User:       NewUserHandler(svc.User),
		Department: NewDepartmentHandler(svc.Department),
		Role:       NewRoleHandler(svc.Role),
		Form:       NewFormHandler(svc.Form),
		Export:     NewExportHandler(svc.Export, svc.Calendar),
	}
}
