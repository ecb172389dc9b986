package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MaxHealth   = 100
	MinMomentum = -100
	MaxMomentum = 100
)

// Profile 玩家档案
// 数据量级：每个用户一到数个
type Profile struct {
	ID                  string    `gorm:"primaryKey;size:36" json:"id"`
	UserID              string    `gorm:"size:36;index" json:"user_id"` // 旧数据可能为空
	Username            string    `gorm:"size:100" json:"username"`
	DisplayName         string    `gorm:"size:100" json:"display_name"`
	Level               int       `gorm:"default:1" json:"level"`      // 旧计数器
	Experience          int64     `gorm:"default:0" json:"experience"` // 旧计数器
	Health              int       `gorm:"default:100" json:"health"`
	Momentum            int       `gorm:"default:0" json:"momentum"`
	WeeklyBonusMetadata JSONMap   `gorm:"type:text" json:"weekly_bonus_metadata"`
	CreatedAt           time.Time `gorm:"index" json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
