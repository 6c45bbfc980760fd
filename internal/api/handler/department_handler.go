package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// DepartmentHandler 部门模块 HTTP 处理器
type DepartmentHandler struct {
	deptSvc service.DepartmentService
}

// NewDepartmentHandler 创建 DepartmentHandler
func NewDepartmentHandler(deptSvc service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{deptSvc: deptSvc}
}

// Create 创建部门
// POST /department
func (h *DepartmentHandler) Create(c *gin.Context) {
	var req dto.CreateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	dept, err := h.deptSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}
	response.Created(c, dept)
}

// Get GET /department/:name
func (h *DepartmentHandler) Get(c *gin.Context) {
	dept, err := h.deptSvc.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}
	response.OK(c, dept)
}

// List GET /departments
func (h *DepartmentHandler) List(c *gin.Context) {
	depts, err := h.deptSvc.List(c.Request.Context())
	if err != nil {
		h.handleDepartmentError(c, err)
		return
	}
	response.OK(c, depts)
}

func (h *DepartmentHandler) handleDepartmentError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrDepartmentNotFound) {
		response.BadRequest(c, err.Error())
		return
	}
	writeAppError(c, err)
}
