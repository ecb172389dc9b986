package schema

import "time"

const SettingDailyXPStipend = "daily_xp_stipend"

// GameSetting 运营可调参数，value 为 JSON
type GameSetting struct {
	Key       string    `gorm:"primaryKey;size:64"`
	Value     JSONMap   `gorm:"type:text"`
	UpdatedBy string    `gorm:"size:36"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (GameSetting) TableName() string {
	return "game_settings"
}
