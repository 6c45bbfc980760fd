package dto

// CreateDepartmentRequest 创建部门请求
type CreateDepartmentRequest struct {
	Name        string `json:"name"        binding:"required,max=255"`
	Description string `json:"description" binding:"omitempty,max=500"`
}
