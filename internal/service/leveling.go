package service

import "math"

const (
	skillBaseRequiredXP  = 100.0
	skillLevelMultiplier = 1.5

	DefaultAttributeXPSpend int64 = 10
	DefaultSkillXPSpend     int64 = 25
)

// RequiredXP 升到下一级所需经验：floor(100 × 1.5^level)，溢出时封顶 MaxInt64
func RequiredXP(level int) int64 {
	if level < 0 {
		level = 0
	}
	v := math.Floor(skillBaseRequiredXP * math.Pow(skillLevelMultiplier, float64(level)))
	if v >= math.MaxInt64 || math.IsInf(v, 1) {
		return math.MaxInt64
	}
	return int64(v)
}

// SkillLevelUp 一次投入后的技能进度
type SkillLevelUp struct {
	PreviousLevel int
	Level         int
	XP            int64
	RequiredXP    int64
}

// LevelsGained 本次升了几级
func (r SkillLevelUp) LevelsGained() int {
	return r.Level - r.PreviousLevel
}

// ApplySkillXP 把 deposit 加到 (level, xp) 上并逐级结算
// 结果满足 XP < RequiredXP，且各级门槛之和加余数等于投入前余数加 deposit。
func ApplySkillXP(level int, xp, deposit int64) SkillLevelUp {
	if level < 0 {
		level = 0
	}
	if xp < 0 {
		xp = 0
	}
	out := SkillLevelUp{PreviousLevel: level, Level: level}

	remainder := xp
	if deposit > 0 {
		if deposit > math.MaxInt64-remainder {
			remainder = math.MaxInt64
		} else {
			remainder += deposit
		}
	}

	required := RequiredXP(out.Level)
	for remainder >= required {
		remainder -= required
		out.Level++
		required = RequiredXP(out.Level)
	}
	out.XP = remainder
	out.RequiredXP = required
	return out
}
