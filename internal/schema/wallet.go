package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPWallet 经验钱包，与 Profile 一对一
// 规范列：xp_balance / lifetime_xp / xp_spent。
// 旧命名（skill_xp_*、attribute_points_balance/lifetime）只在视图层派生，不落库。
type XPWallet struct {
	ID                    string    `gorm:"primaryKey;size:36" json:"id"`
	ProfileID             string    `gorm:"size:36;uniqueIndex;not null" json:"profile_id"`
	XPBalance             int64     `gorm:"column:xp_balance;not null;default:0" json:"xp_balance"`
	LifetimeXP            int64     `gorm:"column:lifetime_xp;not null;default:0" json:"lifetime_xp"`
	XPSpent               int64     `gorm:"column:xp_spent;not null;default:0" json:"xp_spent"`
	AttributePointsEarned int64     `gorm:"not null;default:0" json:"attribute_points_earned"`
	SkillPointsEarned     int64     `gorm:"not null;default:0" json:"skill_points_earned"`
	LastUpdatedAt         time.Time `json:"last_updated_at"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (XPWallet) TableName() string {
	return "xp_wallets"
}

func (w *XPWallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
