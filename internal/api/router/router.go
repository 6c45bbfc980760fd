package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/internal/api/handler"
	"github.com/hieplh/ata-sample-webapp/internal/api/middleware"
	"github.com/hieplh/ata-sample-webapp/internal/dto"
	"github.com/hieplh/ata-sample-webapp/pkg/response"
)

// maxBodyBytes 注册与更新用户时 body 内含 base64 图片
const maxBodyBytes = 32 << 20

// HealthChecker 健康检查依赖（数据库）
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options 路由依赖；Limiter 为 nil 时限流使用进程内令牌桶
type Options struct {
	Config  *config.Config
	Handler *handler.Handler
	Auth    middleware.TokenValidator
	Limiter middleware.WindowCounter
	Health  HealthChecker
	Logger  *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(opts Options) (*gin.Engine, error) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := dto.RegisterValidators(v); err != nil {
			return nil, err
		}
	}

	cfg, h := opts.Config, opts.Handler
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(opts.Logger))
	r.Use(middleware.Logger(opts.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := opts.Health.Ping(ctx); err != nil {
			response.Error(c, http.StatusServiceUnavailable, err.Error())
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── 公开接口（限流） ──
	public := r.Group("")
	public.Use(middleware.RateLimit(opts.Limiter, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	{
		public.POST("/register", h.Auth.Register)
		public.GET("/resend-email/:username", h.Auth.ResendEmail)
		public.GET("/active_user/:username/:otp", h.Auth.Activate)
		public.POST("/login", h.Auth.Login)
		public.POST("/login/face", h.Auth.LoginFace)
	}

	// ── 需要认证的接口 ──
	authorized := r.Group("")
	authorized.Use(middleware.Auth(opts.Auth))
	{
		authorized.POST("/logout", h.Auth.Logout)

		// 用户
		authorized.GET("/me", h.User.Me)
		authorized.POST("/me", h.User.Me)
		authorized.GET("/user/images", h.User.Images)
		authorized.GET("/user/images/identity", h.User.IdentityImages)
		authorized.GET("/user/:data", h.User.Lookup)
		authorized.GET("/users", h.User.List)
		authorized.PUT("/user", h.User.Update)
		authorized.DELETE("/user/:id", h.User.Delete)

		// 部门
		authorized.GET("/department/:name", h.Department.Get)
		authorized.GET("/departments", h.Department.List)
		authorized.POST("/department", h.Department.Create)

		// 角色与权限
		authorized.GET("/roles", h.Role.List)
		authorized.GET("/role/:name", h.Role.Get)
		authorized.POST("/role", h.Role.Create)
		authorized.GET("/permissions", h.Role.ListPermissions)
		authorized.GET("/permissions/:name", h.Role.GetPermission)

		// 表单列表
		forms := authorized.Group("/forms")
		{
			forms.GET("", h.Form.ListCreated)
			forms.GET("/assigned", h.Form.ListAssigned)
			forms.GET("/department", h.Form.ListDepartment)
			forms.GET("/count", h.Form.Count)
			forms.GET("/export", h.Export.ExportForms)
			forms.GET("/calendar", h.Export.Calendar)
		}

		// 单个表单
		form := authorized.Group("/form")
		{
			form.POST("", h.Form.Create)
			form.PUT("", h.Form.Update)
			form.PUT("/confirm", h.Form.Confirm)
			form.GET("/reason", h.Form.Reasons)
			form.GET("/type", h.Form.Types)
			form.GET("/:id", h.Form.Get)
			form.GET("/:id/detail", h.Form.Details)
		}
	}

	return r, nil
}
