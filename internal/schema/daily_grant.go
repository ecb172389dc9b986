package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 每日发放来源
const (
	GrantSourceActivityBonus = "activity_bonus"
	GrantSourceDailyStipend  = "daily_stipend"
	GrantSourceAdminGrant    = "admin_grant"
)

// DailyXPGrant 每日发放的幂等记录：(profile_id, grant_date, source) 唯一。
// 存在即表示当天该来源已发放。
type DailyXPGrant struct {
	ID                    string    `gorm:"primaryKey;size:36" json:"id"`
	ProfileID             string    `gorm:"size:36;not null;uniqueIndex:uniq_daily_grant,priority:1" json:"profile_id"`
	GrantDate             string    `gorm:"size:10;not null;index;uniqueIndex:uniq_daily_grant,priority:2" json:"grant_date"` // YYYY-MM-DD
	Source                string    `gorm:"size:32;not null;uniqueIndex:uniq_daily_grant,priority:3" json:"source"`
	XPAmount              int64     `gorm:"column:xp_amount;not null;default:0" json:"xp_amount"`
	AttributePointsAmount int64     `gorm:"not null;default:0" json:"attribute_points_amount"`
	Metadata              JSONMap   `gorm:"type:text" json:"metadata"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (DailyXPGrant) TableName() string {
	return "profile_daily_xp_grants"
}

func (g *DailyXPGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}
