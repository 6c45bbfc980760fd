package dto

import "time"

// ── 用户模块 DTO ──

// UpdateImageRequest 新增或覆盖图片；id 为空表示新增
type UpdateImageRequest struct {
	ID      *uint  `json:"id"`
	Content string `json:"content" binding:"required"`
}

// UpdateUserRequest 更新当前用户，nil 字段不修改
type UpdateUserRequest struct {
	Username            *string              `json:"username"              binding:"omitempty,min=1,max=255"`
	Password            *string              `json:"password"              binding:"omitempty,min=6,max=72"`
	Department          *string              `json:"department"            binding:"omitempty,max=255"`
	Role                *string              `json:"role"                  binding:"omitempty,max=255"`
	LineManager         *string              `json:"line_manager"          binding:"omitempty,max=255"`
	Firstname           *string              `json:"firstname"             binding:"omitempty,max=255"`
	Middlename          *string              `json:"middlename"            binding:"omitempty,max=255"`
	Lastname            *string              `json:"lastname"              binding:"omitempty,max=255"`
	Gender              *string              `json:"gender"                binding:"omitempty,max=32"`
	Email               *string              `json:"email"                 binding:"omitempty,email"`
	Status              *string              `json:"status"                binding:"omitempty,oneof=active suspend deleted"`
	Identity            *string              `json:"identity"              binding:"omitempty,max=64"`
	IdentityType        *string              `json:"identity_type"         binding:"omitempty,identity_type"`
	Enable2Verification *bool                `json:"enable_2_verification"`
	UpdatedImages       []UpdateImageRequest `json:"updated_images"        binding:"omitempty,dive"`
	DeletedImages       []uint               `json:"deleted_images"`
}

// UserImageResponse 用户图片，image 为 base64 内容
type UserImageResponse struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	Image     string    `json:"image"`
	ImageType *string   `json:"image_type"`
	Created   time.Time `json:"created"`
}
