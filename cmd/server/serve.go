package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/internal/api/handler"
	"github.com/hieplh/ata-sample-webapp/internal/api/router"
	"github.com/hieplh/ata-sample-webapp/internal/repository"
	"github.com/hieplh/ata-sample-webapp/internal/service"
	"github.com/hieplh/ata-sample-webapp/pkg/database"
	"github.com/hieplh/ata-sample-webapp/pkg/identity"
	"github.com/hieplh/ata-sample-webapp/pkg/jwt"
	"github.com/hieplh/ata-sample-webapp/pkg/mail"
	"github.com/hieplh/ata-sample-webapp/pkg/redis"
	"github.com/hieplh/ata-sample-webapp/pkg/storage"
	"github.com/hieplh/ata-sample-webapp/pkg/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动 HTTP 服务（默认命令）",
	RunE:  runServe,
}

func runServe(_ *cobra.Command, _ []string) error {
	// 1. 配置与日志
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 2. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return err
	}

	// 3. Redis（可选：连接失败时限流降级为进程内令牌桶）
	var limiter *redis.Client
	if cfg.Redis.Addr != "" {
		limiter, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，限流降级为进程内计数", zap.Error(err))
			limiter = nil
		} else {
			defer limiter.Close()
		}
	}

	// 4. 外部协作方
	images, err := storage.NewImageStore(cfg.Storage.ImageDir)
	if err != nil {
		return err
	}
	pool := worker.NewPool(cfg.Worker.Size, cfg.Worker.Queue, cfg.Worker.TaskTimeout, logger)

	// 5. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(service.Dependencies{
		Config:   cfg,
		Repo:     repo,
		JWT:      jwt.NewManager(&cfg.Auth),
		Images:   images,
		Identity: identity.NewClient(&cfg.Identity, logger),
		Mailer:   mail.NewMailer(&cfg.Mail, cfg.Server.BaseURL, logger),
		Tasks:    pool,
		Logger:   logger,
	})

	// 6. 路由
	gin.SetMode(gin.ReleaseMode)
	opts := router.Options{
		Config:  cfg,
		Handler: handler.NewHandler(svc),
		Auth:    svc.Auth,
		Health:  repo,
		Logger:  logger,
	}
	if limiter != nil {
		opts.Limiter = limiter
	}
	engine, err := router.Setup(opts)
	if err != nil {
		return fmt.Errorf("初始化路由失败: %w", err)
	}

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 8. 监听系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP 服务器异常", zap.Error(err))
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}
	// 请求全部结束后再排空后台任务
	if err := pool.Shutdown(ctx); err != nil {
		logger.Warn("后台任务未全部完成", zap.Error(err))
	}

	logger.Info("服务器已关闭")
	return nil
}
