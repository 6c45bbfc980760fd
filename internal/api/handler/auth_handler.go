package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// AuthHandler 认证与注册 HTTP 处理器
type AuthHandler struct {
	authSvc service.AuthService
	regSvc  service.RegistrationService
}

// NewAuthHandler 创建 AuthHandler
func NewAuthHandler(authSvc service.AuthService, regSvc service.RegistrationService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, regSvc: regSvc}
}

// Login 用户名密码登录
// POST /login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	if result.TwoFactorRequired {
		response.OK(c, dto.TwoFactorResponse{TwoFactorRequired: true})
		return
	}
	response.OK(c, result.Token)
}

// LoginFace 人脸登录
// POST /login/face (multipart: username, face_image)
func (h *AuthHandler) LoginFace(c *gin.Context) {
	var req dto.LoginFaceRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	face, err := readUpload(c, "face_image")
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if face == nil {
		bindError(c, errors.New("face_image is required"))
		return
	}

	token, err := h.authSvc.LoginByFace(c.Request.Context(), req.Username, *face)
	if err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.OK(c, token)
}

// Logout 删除当前用户的全部 Token
// POST /logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := MustGetClaims(c)
	if !ok {
		return
	}
	if err := h.authSvc.Logout(c.Request.Context(), claims.Username); err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Logout successful")
}

// Register 注册（账号为 suspend，等待激活）
// POST /register
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.regSvc.Register(c.Request.Context(), &req); err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.Message(c, http.StatusCreated, "Registered successfully")
}

// ResendEmail 重新发送激活邮件
// GET /resend-email/:username
func (h *AuthHandler) ResendEmail(c *gin.Context) {
	if err := h.regSvc.ResendEmail(c.Request.Context(), c.Param("username")); err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Resend email successfully")
}

// Activate 校验 OTP 并激活账号
// GET /active_user/:username/:otp
func (h *AuthHandler) Activate(c *gin.Context) {
	otp, err := strconv.Atoi(c.Param("otp"))
	if err != nil {
		bindError(c, errors.New("otp must be a number"))
		return
	}
	if err := h.regSvc.Activate(c.Request.Context(), c.Param("username"), otp); err != nil {
		h.handleAuthError(c, err)
		return
	}
	response.Message(c, http.StatusOK, "Activated account successfully")
}

func (h *AuthHandler) handleAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrFaceNotIdentified):
		response.BadRequest(c, err.Error())
	default:
		writeAppError(c, err)
	}
}
