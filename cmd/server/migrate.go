package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/hieplh/ata-sample-webapp/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "数据库迁移",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "执行全部未应用的迁移",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		db, err := database.NewDB(&cfg.Database, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		return database.RunMigrations(sqlDB, logger)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "回滚迁移，不指定 steps 时全部回滚",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		steps := 0
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps 必须为正整数: %q", args[0])
			}
			steps = n
		}

		cfg, logger, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()

		db, err := database.NewDB(&cfg.Database, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()

		return database.RollbackMigrations(sqlDB, steps, logger)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}
