package dto

import "time"

// ── 认证模块 DTO ──

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginFaceRequest 人脸登录（multipart，图片字段 face_image）
type LoginFaceRequest struct {
	Username string `form:"username" binding:"required"`
}

// RegisterRequest 注册请求，images 为 data URI 格式的 base64 图片
type RegisterRequest struct {
	Username            string   `json:"username"              binding:"required,max=255"`
	Password            string   `json:"password"              binding:"required,min=6,max=72"`
	Department          *string  `json:"department"            binding:"omitempty,max=255"`
	Role                *string  `json:"role"                  binding:"omitempty,max=255"`
	LineManager         *string  `json:"line_manager"          binding:"omitempty,max=255"`
	Firstname           string   `json:"firstname"             binding:"required,max=255"`
	Middlename          *string  `json:"middlename"            binding:"omitempty,max=255"`
	Lastname            string   `json:"lastname"              binding:"required,max=255"`
	Gender              string   `json:"gender"                binding:"required,max=32"`
	Email               string   `json:"email"                 binding:"required,email"`
	Identity            string   `json:"identity"              binding:"required,max=64"`
	IdentityType        string   `json:"identity_type"         binding:"required,identity_type"`
	Enable2Verification bool     `json:"enable_2_verification"`
	Images              []string `json:"images"                binding:"omitempty,dive,required"`
}

// ── 认证模块响应 ──

// TokenResponse 登录成功响应
type TokenResponse struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiredAt time.Time `json:"expired_at"`
	Created   time.Time `json:"created"`
}

// TwoFactorResponse 开启二次验证时返回，客户端需继续调用 /login/face
type TwoFactorResponse struct {
	TwoFactorRequired bool `json:"two_factor_required"`
}

// MessageResponse 通用消息
type MessageResponse struct {
	Message string `json:"message"`
}
