package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WalletCredit 一次入账的增量
type WalletCredit struct {
	XP              int64
	AttributePoints int64
	SkillPoints     int64
}

// WalletRepository 经验钱包仓储
// 所有余额变动都是单条 SQL 的原子增减，不做读-改-写。
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository 创建仓储
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByProfile 获取钱包，不存在返回 nil
func (r *WalletRepository) GetByProfile(ctx context.Context, profileID string) (*schema.XPWallet, error) {
	var w schema.XPWallet
	err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&w).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询钱包失败: %w", err)
	}
	return &w, nil
}

// Credit 入账：钱包不存在时创建，存在时在原值上累加
func (r *WalletRepository) Credit(ctx context.Context, profileID string, c WalletCredit) error {
	if c.XP < 0 || c.AttributePoints < 0 || c.SkillPoints < 0 {
		return fmt.Errorf("入账增量不能为负: %+v", c)
	}
	w := schema.XPWallet{
		ProfileID:             profileID,
		XPBalance:             c.XP,
		LifetimeXP:            c.XP,
		AttributePointsEarned: c.AttributePoints,
		SkillPointsEarned:     c.SkillPoints,
		LastUpdatedAt:         time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "profile_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"xp_balance":              gorm.Expr("xp_wallets.xp_balance + excluded.xp_balance"),
			"lifetime_xp":             gorm.Expr("xp_wallets.lifetime_xp + excluded.lifetime_xp"),
			"attribute_points_earned": gorm.Expr("xp_wallets.attribute_points_earned + excluded.attribute_points_earned"),
			"skill_points_earned":     gorm.Expr("xp_wallets.skill_points_earned + excluded.skill_points_earned"),
			"last_updated_at":         gorm.Expr("excluded.last_updated_at"),
		}),
	}).Create(&w).Error
	if err != nil {
		return fmt.Errorf("钱包入账失败: %w", err)
	}
	return nil
}

// Debit 条件扣款：余额不足时不修改任何数据并返回 false
func (r *WalletRepository) Debit(ctx context.Context, profileID string, amount int64) (bool, error) {
	if amount <= 0 {
		return false, fmt.Errorf("扣款金额必须为正: %d", amount)
	}
	res := r.db.WithContext(ctx).Model(&schema.XPWallet{}).
		Where("profile_id = ? AND xp_balance >= ?", profileID, amount).
		Updates(map[string]any{
			"xp_balance":      gorm.Expr("xp_balance - ?", amount),
			"xp_spent":        gorm.Expr("xp_spent + ?", amount),
			"last_updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("钱包扣款失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// SumBalances 全部钱包的余额合计（运维统计用）
func (r *WalletRepository) SumBalances(ctx context.Context) (balance int64, lifetime int64, err error) {
	var row struct {
		Balance  int64
		Lifetime int64
	}
	err = r.db.WithContext(ctx).Model(&schema.XPWallet{}).
		Select("COALESCE(SUM(xp_balance), 0) AS balance, COALESCE(SUM(lifetime_xp), 0) AS lifetime").
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("统计钱包失败: %w", err)
	}
	return row.Balance, row.Lifetime, nil
}
