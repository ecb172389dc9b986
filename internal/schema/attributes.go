package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlayerAttributes 玩家属性，与 Profile 一对一
type PlayerAttributes struct {
	ID                   string    `gorm:"primaryKey;size:36" json:"id"`
	ProfileID            string    `gorm:"size:36;uniqueIndex;not null" json:"profile_id"`
	MusicalAbility       int64     `gorm:"not null;default:0" json:"musical_ability"`
	VocalTalent          int64     `gorm:"not null;default:0" json:"vocal_talent"`
	RhythmSense          int64     `gorm:"not null;default:0" json:"rhythm_sense"`
	StagePresence        int64     `gorm:"not null;default:0" json:"stage_presence"`
	CreativeInsight      int64     `gorm:"not null;default:0" json:"creative_insight"`
	TechnicalMastery     int64     `gorm:"not null;default:0" json:"technical_mastery"`
	BusinessAcumen       int64     `gorm:"not null;default:0" json:"business_acumen"`
	MarketingSavvy       int64     `gorm:"not null;default:0" json:"marketing_savvy"`
	Composition          int64     `gorm:"not null;default:0" json:"composition"`
	PhysicalEndurance    int64     `gorm:"not null;default:0" json:"physical_endurance"`
	AttributePoints      int64     `gorm:"not null;default:0" json:"attribute_points"`
	AttributePointsSpent int64     `gorm:"not null;default:0" json:"attribute_points_spent"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PlayerAttributes) TableName() string {
	return "player_attributes"
}

func (a *PlayerAttributes) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AttributeColumns 可花费 XP 的属性白名单：对外 key → 列名。
// 新增属性必须同时改这里和结构体，列名不会从请求参数拼接。
var AttributeColumns = map[string]string{
	"musical_ability":    "musical_ability",
	"vocal_talent":       "vocal_talent",
	"rhythm_sense":       "rhythm_sense",
	"stage_presence":     "stage_presence",
	"creative_insight":   "creative_insight",
	"technical_mastery":  "technical_mastery",
	"business_acumen":    "business_acumen",
	"marketing_savvy":    "marketing_savvy",
	"composition":        "composition",
	"physical_endurance": "physical_endurance",
}

// Value 按属性 key 取值，未知 key 返回 false
func (a *PlayerAttributes) Value(key string) (int64, bool) {
	if a == nil {
		return 0, false
	}
	switch key {
	case "musical_ability":
		return a.MusicalAbility, true
	case "vocal_talent":
		return a.VocalTalent, true
	case "rhythm_sense":
		return a.RhythmSense, true
	case "stage_presence":
		return a.StagePresence, true
	case "creative_insight":
		return a.CreativeInsight, true
	case "technical_mastery":
		return a.TechnicalMastery, true
	case "business_acumen":
		return a.BusinessAcumen, true
	case "marketing_savvy":
		return a.MarketingSavvy, true
	case "composition":
		return a.Composition, true
	case "physical_endurance":
		return a.PhysicalEndurance, true
	}
	return 0, false
}
