package service

import (
	"math"
	"strings"

	"github.com/yuqie6/gigledger/internal/schema"
)

// ActivityType 经验流水的活动类型
type ActivityType string

const (
	ActivityExercise          ActivityType = "exercise"
	ActivityRecordingComplete ActivityType = "recording_complete"
	ActivityRecordingSession  ActivityType = "recording_session"
	ActivityGigPerformed      ActivityType = "gig_performed"
	ActivityJamSession        ActivityType = "jam_session"
	ActivityRehearsal         ActivityType = "rehearsal"
	ActivitySongwriting       ActivityType = "songwriting"
	ActivityBusking           ActivityType = "busking"
	ActivityTravel            ActivityType = "travel"
	ActivityRest              ActivityType = "rest"
	ActivityAdminGrant        ActivityType = "admin_grant"
	ActivityAdminMomentum     ActivityType = "admin_momentum"

	// ActivityGeneral 未声明类型的行为奖励，按默认转换率与消耗结算
	ActivityGeneral ActivityType = "general"
)

// ParseActivityType 规整为小写，空值返回 ""
func ParseActivityType(s string) ActivityType {
	return ActivityType(strings.ToLower(strings.TrimSpace(s)))
}

// 经验 → 属性点转换率
const defaultAPConversionRate = 0.50

var apConversionRates = map[ActivityType]float64{
	ActivityExercise:          0.60,
	ActivityRecordingComplete: 0.40,
	ActivityRecordingSession:  0.40,
	ActivityGigPerformed:      0.55,
	ActivityJamSession:        0.50,
	ActivityRehearsal:         0.45,
	ActivitySongwriting:       0.45,
	ActivityBusking:           0.50,
	ActivityAdminGrant:        0.50,
}

// APConversionRate 未登记的类型使用默认转换率
func (a ActivityType) APConversionRate() float64 {
	if r, ok := apConversionRates[a]; ok {
		return r
	}
	return defaultAPConversionRate
}

const apBasisScale = 10000

func (a ActivityType) apConversionBasis() int64 {
	return int64(math.Round(a.APConversionRate() * apBasisScale))
}

// 每小时健康消耗
const defaultHealthDrainPerHour = 5.0

var healthDrainPerHour = map[ActivityType]float64{
	ActivityGigPerformed:     15,
	ActivityExercise:         10,
	ActivityBusking:          8,
	ActivityRecordingSession: 6,
	ActivityRehearsal:        6,
	ActivityJamSession:       5,
	ActivityTravel:           4,
	ActivitySongwriting:      2,
	ActivityRest:             0,
}

// HourlyHealthDrain 未登记的类型使用默认消耗
func (a ActivityType) HourlyHealthDrain() float64 {
	if r, ok := healthDrainPerHour[a]; ok {
		return r
	}
	return defaultHealthDrainPerHour
}

// HealthDrain round(每小时消耗 × 分钟 / 60)，时长非正时为 0，最多扣满健康上限
func HealthDrain(activity ActivityType, minutes float64) int {
	rate := activity.HourlyHealthDrain()
	if rate <= 0 || minutes <= 0 || math.IsNaN(minutes) {
		return 0
	}
	d := math.Round(rate * minutes / 60)
	if d >= schema.MaxHealth {
		return schema.MaxHealth
	}
	return int(d)
}
