package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	pkgerrors "github.com/hieplh/ata-sample-webapp/pkg/errors"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// FormHandler 表单模块 HTTP 处理器
type FormHandler struct {
	formSvc service.FormService
}

// NewFormHandler 创建 FormHandler
func NewFormHandler(formSvc service.FormService) *FormHandler {
	return &FormHandler{formSvc: formSvc}
}

// Create 创建表单
// POST /form
func (h *FormHandler) Create(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	form, err := h.formSvc.Create(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.Created(c, form)
}

// Update 更新表单，明细整体替换
// PUT /form
func (h *FormHandler) Update(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	form, err := h.formSvc.Update(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OK(c, form)
}

// Confirm 批量审批
// PUT /form/confirm (multipart: form_ids, form_status, face_image)
func (h *FormHandler) Confirm(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.ConfirmFormRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	face, err := readUpload(c, "face_image")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	forms, err := h.formSvc.Confirm(c.Request.Context(), claims, &req, face)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OK(c, forms)
}

// Get GET /form/:id
func (h *FormHandler) Get(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}
	form, err := h.formSvc.Get(c.Request.Context(), id)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OK(c, form)
}

// Details GET /form/:id/detail
func (h *FormHandler) Details(c *gin.Context) {
	id, ok := formID(c)
	if !ok {
		return
	}
	details, err := h.formSvc.Details(c.Request.Context(), id)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OK(c, details)
}

// ListCreated GET /forms
func (h *FormHandler) ListCreated(c *gin.Context) {
	h.list(c, repository.ScopeCreated)
}

// ListAssigned GET /forms/assigned
func (h *FormHandler) ListAssigned(c *gin.Context) {
	h.list(c, repository.ScopeAssigned)
}

// ListDepartment GET /forms/department
func (h *FormHandler) ListDepartment(c *gin.Context) {
	h.list(c, repository.ScopeDepartment)
}

func (h *FormHandler) list(c *gin.Context, scope repository.FormScope) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.FormListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	forms, total, err := h.formSvc.List(c.Request.Context(), claims, scope, &req)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OKPage(c, forms, total, req.Page, req.GetPageSize())
}

// Count GET /forms/count
func (h *FormHandler) Count(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	counts, err := h.formSvc.Count(c.Request.Context(), claims)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OK(c, counts)
}

// Reasons GET /form/reason?form_type=
func (h *FormHandler) Reasons(c *gin.Context) {
	var q dto.FormReasonQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	reasons, err := h.formSvc.Reasons(c.Request.Context(), q.FormType)
	if err != nil {
		h.handleFormError(c, err)
		return
	}
	response.OK(c, reasons)
}

// Types GET /form/type
func (h *FormHandler) Types(c *gin.Context) {
	response.OK(c, h.formSvc.Types())
}

func formID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		bindError(c, errors.New("id must be a number"))
		return 0, false
	}
	return uint(id), true
}

func (h *FormHandler) handleFormError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrFormNotEditable), errors.Is(err, service.ErrFormNotAssigned):
		response.Forbidden(c, err.Error())
	default:
		writeAppError(c, err)
	}
}
