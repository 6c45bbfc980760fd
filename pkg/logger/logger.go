package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hieplh/ata-sample-webapp/config"
	"github.com/hieplh/ata-sample-webapp/pkg/metrics"
)

// NewLogger 根据配置初始化 Zap 日志实例
// 配置了 log.file 时额外挂载一个按大小滚动的文件输出
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	atomicLevel := zap.NewAtomicLevelAt(level)

	var encCfg zapcore.EncoderConfig
	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encCfg = zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		encCfg = zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atomicLevel),
	}

	if cfg.File != "" {
		// 文件统一使用 JSON，便于采集
		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(fileEnc),
			zapcore.AddSync(rotator),
			atomicLevel,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.Hooks(countLevel)), nil
}

// countLevel 统计各级别日志条数
func countLevel(entry zapcore.Entry) error {
	metrics.LogStatementsTotal.WithLabelValues(entry.Level.String()).Inc()
	return nil
}
