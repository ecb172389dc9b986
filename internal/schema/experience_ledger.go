package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExperienceLedgerEntry 经验流水，只追加不修改
// 数据量级：每个活跃玩家每天数十条
type ExperienceLedgerEntry struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	ProfileID    string    `gorm:"size:36;not null;index" json:"profile_id"`
	UserID       string    `gorm:"size:36;not null;index" json:"user_id"`
	ActivityType string    `gorm:"size:64;not null;index" json:"activity_type"`
	XPAmount     int64     `gorm:"column:xp_amount;not null;default:0" json:"xp_amount"`
	Metadata     JSONMap   `gorm:"type:text" json:"metadata"`
	CreatedAt    time.Time `gorm:"index;not null" json:"created_at"`
}

func (ExperienceLedgerEntry) TableName() string {
	return "experience_ledger"
}

func (e *ExperienceLedgerEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
