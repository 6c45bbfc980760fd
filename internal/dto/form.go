package dto

// ── 表单模块 DTO ──

// FormDetailRequest 时间段明细
type FormDetailRequest struct {
	FromTime string `json:"from_time" binding:"required,clock"`
	ToTime   string `json:"to_time"   binding:"required,clock"`
	FromDate string `json:"from_date" binding:"required,datetime=2006-01-02"`
	ToDate   string `json:"to_date"   binding:"required,datetime=2006-01-02"`
}

// CreateFormRequest 创建表单；department / role 缺省取当前用户
type CreateFormRequest struct {
	FormType     string              `json:"form_type"     binding:"required,form_type"`
	Department   string              `json:"department"    binding:"omitempty,max=255"`
	Role         string              `json:"role"          binding:"omitempty,max=255"`
	Reason       uint                `json:"reason"        binding:"required"`
	Productivity string              `json:"productivity"  binding:"omitempty,productivity"`
	Description  *string             `json:"description"`
	Note         *string             `json:"note"`
	AssignedUser string              `json:"assigned_user" binding:"required,max=255"`
	Details      []FormDetailRequest `json:"details"       binding:"required,min=1,dive"`
}

// UpdateFormRequest 更新表单；空值字段保持原值
type UpdateFormRequest struct {
	ID           uint                `json:"id"            binding:"required"`
	Version      *int                `json:"version"`
	FormType     string              `json:"form_type"     binding:"omitempty,form_type"`
	FormStatus   string              `json:"form_status"   binding:"omitempty,form_status"`
	Department   string              `json:"department"    binding:"omitempty,max=255"`
	Role         string              `json:"role"          binding:"omitempty,max=255"`
	Reason       uint                `json:"reason"`
	Productivity string              `json:"productivity"  binding:"omitempty,productivity"`
	Description  string              `json:"description"`
	Note         string              `json:"note"`
	AssignedUser string              `json:"assigned_user" binding:"omitempty,max=255"`
	Details      []FormDetailRequest `json:"details"       binding:"omitempty,dive"`
}

// ConfirmFormRequest 审批（multipart），可附 face_image
type ConfirmFormRequest struct {
	FormIDs    []uint `form:"form_ids"    binding:"required,min=1"`
	FormStatus string `form:"form_status" binding:"required,oneof=approved cancelled"`
}

// FormListRequest 列表查询参数，page 从 0 开始
type FormListRequest struct {
	Status   string `form:"status"    binding:"omitempty,form_status"`
	Page     int    `form:"page"      binding:"omitempty,min=0"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPageSize 每页数量（默认 20）
func (r *FormListRequest) GetPageSize() int {
	if r.PageSize <= 0 {
		return 20
	}
	return r.PageSize
}

// GetOffset 偏移量
func (r *FormListRequest) GetOffset() int {
	if r.Page < 0 {
		return 0
	}
	return r.Page * r.GetPageSize()
}

// FormExportRequest 导出参数
type FormExportRequest struct {
	Scope  string `form:"scope"  binding:"omitempty,oneof=created assigned department"`
	Status string `form:"status" binding:"omitempty,form_status"`
}

// FormReasonQuery 原因查询
type FormReasonQuery struct {
	FormType string `form:"form_type" binding:"omitempty,form_type"`
}

// ── 表单模块响应 ──

// FormTypeResponse 表单类型
type FormTypeResponse struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StatusCount 各状态数量
type StatusCount struct {
	Pending   int64 `json:"pending"`
	Approved  int64 `json:"approved"`
	Cancelled int64 `json:"cancelled"`
	Total     int64 `json:"total"`
}

// FormCountResponse 三个维度的统计
type FormCountResponse struct {
	Created    StatusCount `json:"created"`
	Assigned   StatusCount `json:"assigned"`
	Department StatusCount `json:"department"`
}
