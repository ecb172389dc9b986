package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// HostingEnv 托管平台注入的环境变量
type HostingEnv struct {
	SupabaseURL    string `env:"SUPABASE_URL"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string `env:"SUPABASE_JWT_SECRET"`
}

// LoadHostingEnv 解析环境变量；缺失不在此处报错，由 Validate 决定
func LoadHostingEnv() (HostingEnv, error) {
	var h HostingEnv
	if err := env.Parse(&h); err != nil {
		return HostingEnv{}, fmt.Errorf("解析环境变量失败: %w", err)
	}
	h.SupabaseURL = strings.TrimRight(strings.TrimSpace(h.SupabaseURL), "/")
	return h, nil
}

// Validate HTTP 服务启动前必须具备的配置
func (h HostingEnv) Validate() error {
	var missing []string
	if h.SupabaseURL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if h.ServiceRoleKey == "" {
		missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
	}
	if h.JWTSecret == "" {
		missing = append(missing, "SUPABASE_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("缺少环境变量: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Issuer 令牌签发方，SUPABASE_URL 为空时不校验
func (h HostingEnv) Issuer() string {
	if h.SupabaseURL == "" {
		return ""
	}
	return h.SupabaseURL + "/auth/v1"
}
