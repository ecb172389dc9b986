package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuqie6/gigledger/internal/bootstrap"
	"github.com/yuqie6/gigledger/internal/pkg/config"
	"github.com/yuqie6/gigledger/internal/schema"
	"github.com/yuqie6/gigledger/internal/service"
)

var (
	cfgFile string
	core    *bootstrap.Core
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gigledger",
		Short: "GigLedger - 音乐生涯进度账本运维工具",
		Long:  `GigLedger 管理玩家经验钱包、每日聚合与管理员授权。`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations["skip-core"] == "true" {
				return nil
			}
			var err error
			core, err = bootstrap.NewCore(cfgFile)
			if err != nil {
				return fmt.Errorf("初始化失败: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if core != nil {
				_ = core.Close()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(aggregateCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("命令执行失败", "error", err)
		os.Exit(1)
	}
}

// migrateCmd 打开数据库即执行迁移，这里只汇报结果
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "执行数据库迁移",
		RunE: func(cmd *cobra.Command, args []string) error {
			if core.DB.SafeMode {
				return fmt.Errorf("迁移失败: %s", core.DB.MigrationError)
			}
			fmt.Printf("✅ 数据库已是最新版本 (driver=%s, schema=%d)\n", core.DB.Driver, core.DB.SchemaVersion)
			return nil
		},
	}
}

func aggregateCmd() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "手动执行每日活动聚合（默认前一天）",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.RequireWritable(); err != nil {
				return err
			}
			res, err := core.Services.Aggregator.Run(context.Background(), date)
			if err != nil {
				return err
			}
			fmt.Printf("📊 %s 聚合完成\n", res.Date)
			fmt.Printf("  • 已发放: %d\n", res.Processed)
			fmt.Printf("  • 已跳过: %d\n", res.Skipped)
			fmt.Printf("  • 失败:   %d\n", res.Failed)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "指定日期 (YYYY-MM-DD)")
	return cmd
}

func profileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "档案查询",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <user_id>",
		Short: "打印用户当前档案快照与技能进度（JSON）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := service.LoadProfileReport(context.Background(), core.Store, args[0])
			if err != nil {
				if errors.Is(err, service.ErrNotFound) {
					return fmt.Errorf("用户 %s 没有档案", args[0])
				}
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	})
	return cmd
}

// statsCmd 全局经验合计
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "查看全部钱包的经验合计",
		RunE: func(cmd *cobra.Command, args []string) error {
			totals, err := service.LoadEconomyTotals(context.Background(), core.Store)
			if err != nil {
				return err
			}
			fmt.Println("📈 经验总计")
			fmt.Printf("  • 余额:     %d\n", totals.XPBalance)
			fmt.Printf("  • 累计获得: %d\n", totals.LifetimeXP)
			fmt.Printf("  • 已花费:   %d\n", totals.XPSpent)
			return nil
		},
	}
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "管理员角色维护",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "grant-role <user_id>",
		Short: "授予管理员角色",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.Store.Roles.Grant(context.Background(), args[0], schema.RoleAdmin); err != nil {
				return err
			}
			fmt.Printf("✅ 已授予 %s 管理员角色\n", args[0])
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke-role <user_id>",
		Short: "撤销管理员角色",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := core.Store.Roles.Revoke(context.Background(), args[0], schema.RoleAdmin); err != nil {
				return err
			}
			fmt.Printf("✅ 已撤销 %s 管理员角色\n", args[0])
			return nil
		},
	})
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置文件",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "init",
		Short:       "写出默认配置",
		Annotations: map[string]string{"skip-core": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("配置文件已存在: %s", path)
			}
			if err := config.WriteFile(path, config.Default()); err != nil {
				return err
			}
			fmt.Printf("✅ 已写出默认配置: %s\n", path)
			return nil
		},
	})
	return cmd
}
