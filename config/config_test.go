package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8000},
		Auth:       AuthConfig{JWTSecret: "0123456789abcdef-secret", Algorithm: "HS256", TokenTTL: 72 * time.Hour},
		Activation: ActivationConfig{OTPTTL: 24 * time.Hour, MaxAttempts: 3},
		Worker:     WorkerConfig{Size: 4, Queue: 100, TaskTimeout: time.Minute},
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "合法配置", mutate: func(*Config) {}},
		{name: "密钥为空", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: true},
		{name: "密钥过短", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: true},
		{name: "不支持的算法", mutate: func(c *Config) { c.Auth.Algorithm = "RS256" }, wantErr: true},
		{name: "TTL 为 0", mutate: func(c *Config) { c.Auth.TokenTTL = 0 }, wantErr: true},
		{name: "端口越界", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "尝试次数为 0", mutate: func(c *Config) { c.Activation.MaxAttempts = 0 }, wantErr: true},
		{name: "任务超时为 0", mutate: func(c *Config) { c.Worker.TaskTimeout = 0 }, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("auth:\n  jwt_secret: file-secret-0123456789\nserver:\n  port: 9100\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.Equal(t, 72*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.Activation.OTPTTL)
	assert.Equal(t, 3, cfg.Activation.MaxAttempts)
	assert.Equal(t, "IT Department", cfg.Registration.DefaultDepartment)
	assert.False(t, cfg.Form.PhaseByRoleKeyword)
	assert.Equal(t, time.Minute, cfg.Worker.TaskTimeout)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("auth:\n  jwt_secret: file-secret-0123456789\n"), 0o600))

	t.Setenv("HR_SERVER_PORT", "9200")
	t.Setenv("HR_WORKER_TASK_TIMEOUT", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Worker.TaskTimeout)
}

func TestLoad_MissingSecret(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 8000\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
