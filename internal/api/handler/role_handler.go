package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// RoleHandler 角色与权限 HTTP 处理器
type RoleHandler struct {
	roleSvc service.RoleService
}

// NewRoleHandler 创建 RoleHandler
func NewRoleHandler(roleSvc service.RoleService) *RoleHandler {
	return &RoleHandler{roleSvc: roleSvc}
}

// Create 创建角色及其权限
// POST /role
func (h *RoleHandler) Create(c *gin.Context) {
	var req dto.CreateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	role, err := h.roleSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleRoleError(c, err)
		return
	}
	response.Created(c, role)
}

// Get GET /role/:name
func (h *RoleHandler) Get(c *gin.Context) {
	role, err := h.roleSvc.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.handleRoleError(c, err)
		return
	}
	response.OK(c, role)
}

// List GET /roles
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roleSvc.List(c.Request.Context())
	if err != nil {
		h.handleRoleError(c, err)
		return
	}
	response.OK(c, roles)
}

// ListPermissions GET /permissions
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	perms, err := h.roleSvc.ListPermissions(c.Request.Context())
	if err != nil {
		h.handleRoleError(c, err)
		return
	}
	response.OK(c, perms)
}

// GetPermission GET /permissions/:name
func (h *RoleHandler) GetPermission(c *gin.Context) {
	perm, err := h.roleSvc.GetPermission(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.handleRoleError(c, err)
		return
	}
	response.OK(c, perm)
}

func (h *RoleHandler) handleRoleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoleNotFound), errors.Is(err, service.ErrPermissionNotFound):
		response.BadRequest(c, err.Error())
	default:
		writeAppError(c, err)
	}
}
