package service

import (
	"context"

	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/schema"
)

// ProfileReport 运维查看用：档案快照加全部技能进度
type ProfileReport struct {
	*ProfileState
	Skills []schema.SkillProgress `json:"skills"`
}

// LoadProfileReport 按用户取当前档案并附上技能进度（等级高的在前）
func LoadProfileReport(ctx context.Context, store *repository.Store, userID string) (*ProfileReport, error) {
	state, err := LoadActiveProfile(ctx, store, userID)
	if err != nil {
		return nil, err
	}
	skills, err := store.Skills.ListByProfile(ctx, state.Profile.ID)
	if err != nil {
		return nil, internalError("查询技能进度失败", err)
	}
	if skills == nil {
		skills = []schema.SkillProgress{}
	}
	return &ProfileReport{ProfileState: state, Skills: skills}, nil
}

// EconomyTotals 全部钱包的经验合计
type EconomyTotals struct {
	XPBalance  int64 `json:"xp_balance"`
	LifetimeXP int64 `json:"lifetime_xp"`
	XPSpent    int64 `json:"xp_spent"`
}

// LoadEconomyTotals 余额 + 已花费 = 累计获得，偏离说明有绕过钱包的写入
func LoadEconomyTotals(ctx context.Context, store *repository.Store) (EconomyTotals, error) {
	balance, lifetime, err := store.Wallets.SumBalances(ctx)
	if err != nil {
		return EconomyTotals{}, internalError("统计钱包失败", err)
	}
	return EconomyTotals{XPBalance: balance, LifetimeXP: lifetime, XPSpent: lifetime - balance}, nil
}
