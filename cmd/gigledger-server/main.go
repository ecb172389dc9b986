package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yuqie6/gigledger/internal/bootstrap"
	"github.com/yuqie6/gigledger/internal/httpapi"
	"github.com/yuqie6/gigledger/internal/pkg/buildinfo"
	"github.com/yuqie6/gigledger/internal/pkg/config"
	"github.com/yuqie6/gigledger/internal/pkg/telemetry"
	"github.com/yuqie6/gigledger/internal/scheduler"
)

func main() {
	cfgPath := flag.String("config", "", "配置文件路径")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		slog.Error("gigledger 退出", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := bootstrap.NewCore(cfgPath)
	if err != nil {
		return err
	}
	defer core.Close()

	if err := core.Cfg.Hosting.Validate(); err != nil {
		return err
	}
	config.Watch(core.Cfg)

	shutdownTracing, err := telemetry.Setup(ctx, core.Cfg.Telemetry, buildinfo.Version)
	if err != nil {
		slog.Warn("初始化追踪失败，继续运行", "error", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	slog.Info("gigledger 启动中...", "name", core.Cfg.App.Name, "version", buildinfo.Version, "commit", buildinfo.Commit)

	var daily *scheduler.Daily
	if core.Cfg.Scheduler.Enabled {
		daily, err = scheduler.NewDaily(core.Cfg.Scheduler.DailySpec, core.Services.Aggregator)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	srv, err := httpapi.Start(gctx, core, httpapi.Options{ListenAddr: core.Cfg.Server.Listen})
	if err != nil {
		return err
	}
	// 监听失败会取消 gctx，调度随之停止
	g.Go(func() error {
		return srv.Wait(gctx)
	})
	if daily != nil {
		g.Go(func() error {
			return daily.Run(gctx)
		})
	}

	err = g.Wait()

	slog.Info("正在关闭...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("gigledger 已退出")
	return nil
}
