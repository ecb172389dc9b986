package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SkillProgress 单个技能的升级进度（Profile × skill_slug 唯一）
// Version 作为 CAS 令牌，每次写入自增。
type SkillProgress struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	ProfileID       string    `gorm:"size:36;not null;uniqueIndex:uniq_skill_progress,priority:1" json:"profile_id"`
	SkillSlug       string    `gorm:"size:100;not null;uniqueIndex:uniq_skill_progress,priority:2" json:"skill_slug"`
	CurrentLevel    int       `gorm:"not null;default:0" json:"current_level"`
	CurrentXP       int64     `gorm:"column:current_xp;not null;default:0" json:"current_xp"`
	RequiredXP      int64     `gorm:"column:required_xp;not null;default:100" json:"required_xp"`
	Version         int64     `gorm:"not null;default:0" json:"-"`
	LastPracticedAt time.Time `json:"last_practiced_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (SkillProgress) TableName() string {
	return "skill_progress"
}

func (s *SkillProgress) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
