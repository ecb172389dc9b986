package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// 托管环境变量，不来自配置文件
	Hosting HostingEnv `mapstructure:"-"`

	path string
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Version  string `mapstructure:"version"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Listen            string `mapstructure:"listen"`
	ReadHeaderTimeout int    `mapstructure:"read_header_timeout_sec"`
	ShutdownTimeout   int    `mapstructure:"shutdown_timeout_sec"`
	AllowedOrigin     string `mapstructure:"allowed_origin"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Driver string `mapstructure:"driver"`  // sqlite | postgres
	DBPath string `mapstructure:"db_path"` // sqlite
	DSN    string `mapstructure:"dsn"`     // postgres，支持 ${VAR}
}

// SchedulerConfig 每日聚合调度
type SchedulerConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DailySpec string `mapstructure:"daily_spec"` // cron 表达式，按 UTC 解释
}

// TelemetryConfig OpenTelemetry 导出
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// Path 实际加载的配置文件，未找到时为空
func (c *Config) Path() string {
	return c.path
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量，如 GIGLEDGER_STORAGE_DRIVER
	v.SetEnvPrefix("GIGLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var path string
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else if configPath != "" && os.IsNotExist(err) {
			slog.Warn("配置文件不存在，使用默认配置", "path", configPath)
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		path = v.ConfigFileUsed()
		slog.Info("加载配置文件", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	cfg.path = path

	// 处理环境变量占位符
	cfg.Storage.DSN = expandEnv(cfg.Storage.DSN)

	if cfg.Storage.Driver == "sqlite" && cfg.Storage.DBPath != ":memory:" {
		cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	}

	hosting, err := LoadHostingEnv()
	if err != nil {
		return nil, err
	}
	cfg.Hosting = hosting

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "gigledger")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")

	// Server
	v.SetDefault("server.listen", "127.0.0.1:8787")
	v.SetDefault("server.read_header_timeout_sec", 5)
	v.SetDefault("server.shutdown_timeout_sec", 10)
	v.SetDefault("server.allowed_origin", "*")

	// Storage
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.db_path", "./data/gigledger.db")
	v.SetDefault("storage.dsn", "${DATABASE_URL}")

	// Scheduler：每天 UTC 00:10 聚合前一天
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.daily_spec", "10 0 * * *")

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "gigledger")
}

// Default 只含默认值的配置（config init 使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 相对路径按可执行文件目录解析
func resolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

var logLevel = new(slog.LevelVar)

// ParseLevel 未知级别按 info 处理
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger 根据配置设置日志级别；级别可通过 SetLogLevel 热更新
func SetupLogger(level string) {
	logLevel.Set(ParseLevel(level))
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// SetLogLevel 运行时调整日志级别
func SetLogLevel(level string) {
	logLevel.Set(ParseLevel(level))
}

// LogLevel 当前日志级别
func LogLevel() slog.Level {
	return logLevel.Level()
}

var watchOnce sync.Once

// Watch 监听配置文件，变更时只热更新日志级别，其余配置需重启生效
func Watch(cfg *Config) {
	if cfg == nil || cfg.path == "" {
		return
	}
	watchOnce.Do(func() {
		v := viper.New()
		v.SetConfigFile(cfg.path)
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("配置监听初始化失败", "path", cfg.path, "error", err)
			return
		}
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			level := v.GetString("app.log_level")
			SetLogLevel(level)
			slog.Info("配置文件变更，已更新日志级别", "path", e.Name, "log_level", level)
		})
		v.WatchConfig()
	})
}
