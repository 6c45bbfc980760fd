package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// UserHandler 用户模块 HTTP 处理器
type UserHandler struct {
	userSvc service.UserService
}

// NewUserHandler 创建 UserHandler
func NewUserHandler(userSvc service.UserService) *UserHandler {
	return &UserHandler{userSvc: userSvc}
}

// Me 当前用户
// GET /me, POST /me
func (h *UserHandler) Me(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	user, err := h.userSvc.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// Images 当前用户的图片
// GET /user/images
func (h *UserHandler) Images(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	images, err := h.userSvc.Images(c.Request.Context(), claims.Username)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, images)
}

// IdentityImages 人脸识别服务中登记的图片
// GET /user/images/identity
func (h *UserHandler) IdentityImages(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	response.OK(c, h.userSvc.IdentityImages(c.Request.Context(), claims.Username))
}

// Lookup 按 id / 邮箱 / 证件号查找，未找到返回 null
// GET /user/:data
func (h *UserHandler) Lookup(c *gin.Context) {
	user, err := h.userSvc.Lookup(c.Request.Context(), c.Param("data"))
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// List 全部用户
// GET /users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userSvc.List(c.Request.Context())
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, users)
}

// Update 更新当前用户
// PUT /user
func (h *UserHandler) Update(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.userSvc.Update(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleUserError(c, err)
		return
	}
	response.OK(c, user)
}

// Delete 注销用户，成功返回 204
// DELETE /user/:id
func (h *UserHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, errors.New("id must be a number"))
		return
	}
	if err := h.userSvc.Delete(c.Request.Context(), uint(id)); err != nil {
		h.handleUserError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrImageNotOwned):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrImageNotFound):
		response.BadRequest(c, err.Error())
	default:
		writeAppError(c, err)
	}
}
