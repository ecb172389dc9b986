package bootstrap

import (
	"fmt"

	"github.com/yuqie6/gigledger/internal/eventbus"
	"github.com/yuqie6/gigledger/internal/pkg/config"
	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/service"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg   *config.Config
	DB    *repository.Database
	Store *repository.Store
	Hub   *eventbus.Hub

	Services struct {
		Progression *service.ProgressionService
		Admin       *service.AdminService
		Aggregator  *service.DailyAggregator
		Dispatcher  *service.Dispatcher
	}
}

// NewCore 加载配置并构建核心依赖（不启动 HTTP 与调度）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.App.LogLevel)
	return NewCoreFromConfig(cfg)
}

// NewCoreFromConfig 用已加载的配置构建核心依赖
func NewCoreFromConfig(cfg *config.Config) (*Core, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg 不能为空")
	}

	db, err := repository.NewDatabase(repository.Options{
		Driver: cfg.Storage.Driver,
		DBPath: cfg.Storage.DBPath,
		DSN:    cfg.Storage.DSN,
	})
	if err != nil {
		return nil, err
	}

	c := &Core{
		Cfg:   cfg,
		DB:    db,
		Store: repository.NewStore(db.DB),
		Hub:   eventbus.NewHub(),
	}

	// Services
	c.Services.Progression = service.NewProgressionService(c.Store, c.Hub)
	c.Services.Admin = service.NewAdminService(c.Store, c.Hub)
	c.Services.Aggregator = service.NewDailyAggregator(c.Store, c.Hub)
	c.Services.Dispatcher = service.NewDispatcher(c.Store, c.Services.Progression, c.Services.Admin)

	return c, nil
}

// RequireWritable 迁移失败进入安全模式时拒绝写操作
func (c *Core) RequireWritable() error {
	if c.DB != nil && c.DB.SafeMode {
		return fmt.Errorf("数据库处于安全模式: %s", c.DB.MigrationError)
	}
	return nil
}

// Close 关闭核心依赖资源
func (c *Core) Close() error {
	if c == nil || c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
