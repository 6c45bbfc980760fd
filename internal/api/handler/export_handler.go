package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	icsContentType  = "text/calendar; charset=utf-8"
)

// ExportHandler 表单导出与日历订阅
type ExportHandler struct {
	exportSvc   service.ExportService
	calendarSvc service.CalendarService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService, calendarSvc service.CalendarService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc, calendarSvc: calendarSvc}
}

// ExportForms 导出表单为 xlsx
// GET /forms/export?scope=&status=
func (h *ExportHandler) ExportForms(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	var req dto.FormExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportForms(c.Request.Context(), claims, &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	// 设置下载响应头
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// Calendar 部门已审批请假日历
// GET /forms/calendar
func (h *ExportHandler) Calendar(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	ics, err := h.calendarSvc.DepartmentCalendar(c.Request.Context(), claims)
	if err != nil {
		h.handleExportError(c, err)
		return
	}
	c.Header("Content-Disposition", "inline; filename=department.ics")
	c.Data(http.StatusOK, icsContentType, []byte(ics))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrExportGenerateFail) {
		response.InternalError(c, err.Error())
		return
	}
	writeAppError(c, err)
}
