package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hieplh/ata-sample-webapp/config"
	applogger "github.com/hieplh/ata-sample-webapp/pkg/logger"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "hr-server",
	Short:        "HR administration backend",
	Long:         `Accounts, departments, roles and the leave/absence form workflow over HTTP.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml）")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置并初始化日志
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return cfg, logger, nil
}
