package service

import (
	"context"
	"time"

	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/schema"
)

// StipendConfig 每日签到经验配置（game_settings.daily_xp_stipend）
type StipendConfig struct {
	NewPlayerAmount int64 `json:"new_player_amount"`
	VeteranAmount   int64 `json:"veteran_amount"`
	NewPlayerDays   int   `json:"new_player_days"`
}

// DefaultStipendConfig 新玩家 30 天内每天 10 XP，之后 5 XP
func DefaultStipendConfig() StipendConfig {
	return StipendConfig{NewPlayerAmount: 10, VeteranAmount: 5, NewPlayerDays: 30}
}

// AmountFor 按档案年龄选择发放额度
func (c StipendConfig) AmountFor(profileCreatedAt, now time.Time) int64 {
	if profileCreatedAt.IsZero() {
		return c.VeteranAmount
	}
	age := now.Sub(profileCreatedAt)
	if age < time.Duration(c.NewPlayerDays)*24*time.Hour {
		return c.NewPlayerAmount
	}
	return c.VeteranAmount
}

func (c StipendConfig) toJSONMap() schema.JSONMap {
	return schema.JSONMap{
		"new_player_amount": c.NewPlayerAmount,
		"veteran_amount":    c.VeteranAmount,
		"new_player_days":   c.NewPlayerDays,
	}
}

// loadStipendConfig 设置缺失或字段非法时回落到默认值
func loadStipendConfig(ctx context.Context, store *repository.Store) (StipendConfig, error) {
	cfg := DefaultStipendConfig()
	raw, err := store.Settings.Get(ctx, schema.SettingDailyXPStipend)
	if err != nil {
		return cfg, err
	}
	if v, ok := schema.GetFloat(raw, "new_player_amount"); ok && v > 0 {
		cfg.NewPlayerAmount = int64(v)
	}
	if v, ok := schema.GetFloat(raw, "veteran_amount"); ok && v > 0 {
		cfg.VeteranAmount = int64(v)
	}
	if v, ok := schema.GetFloat(raw, "new_player_days"); ok && v > 0 {
		cfg.NewPlayerDays = int(v)
	}
	return cfg, nil
}
