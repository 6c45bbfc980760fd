package dto

// CreateRoleRequest 创建角色请求，permissions 为权限编码
type CreateRoleRequest struct {
	Name        string   `json:"name"        binding:"required,max=255"`
	Description string   `json:"description" binding:"omitempty,max=500"`
	Permissions []string `json:"permissions" binding:"required,dive,required"`
}
