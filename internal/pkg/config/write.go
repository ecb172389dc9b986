package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

// WriteFile 写出配置文件；托管环境变量不落盘
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":      cfg.App.Name,
			"version":   cfg.App.Version,
			"log_level": cfg.App.LogLevel,
		},
		"server": map[string]any{
			"listen":                  cfg.Server.Listen,
			"read_header_timeout_sec": cfg.Server.ReadHeaderTimeout,
			"shutdown_timeout_sec":    cfg.Server.ShutdownTimeout,
			"allowed_origin":          cfg.Server.AllowedOrigin,
		},
		"storage": map[string]any{
			"driver":  cfg.Storage.Driver,
			"db_path": cfg.Storage.DBPath,
			"dsn":     cfg.Storage.DSN,
		},
		"scheduler": map[string]any{
			"enabled":    cfg.Scheduler.Enabled,
			"daily_spec": cfg.Scheduler.DailySpec,
		},
		"telemetry": map[string]any{
			"enabled":       cfg.Telemetry.Enabled,
			"otlp_endpoint": cfg.Telemetry.OTLPEndpoint,
			"service_name":  cfg.Telemetry.ServiceName,
		},
	}

	b, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}
