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

// SkillProgressRepository 技能进度仓储
type SkillProgressRepository struct {
	db *gorm.DB
}

// NewSkillProgressRepository 创建仓储
func NewSkillProgressRepository(db *gorm.DB) *SkillProgressRepository {
	return &SkillProgressRepository{db: db}
}

// Get 获取技能进度，不存在返回 nil
func (r *SkillProgressRepository) Get(ctx context.Context, profileID, slug string) (*schema.SkillProgress, error) {
	var sp schema.SkillProgress
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND skill_slug = ?", profileID, slug).
		First(&sp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询技能进度失败: %w", err)
	}
	return &sp, nil
}

// Ensure 不存在时以初始值创建，已存在则不动
func (r *SkillProgressRepository) Ensure(ctx context.Context, initial *schema.SkillProgress) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(initial).Error
	if err != nil {
		return fmt.Errorf("初始化技能进度失败: %w", err)
	}
	return nil
}

// CompareAndSwap 仅当版本号仍为 sp.Version 时写入，成功后 sp.Version 自增
func (r *SkillProgressRepository) CompareAndSwap(ctx context.Context, sp *schema.SkillProgress) (bool, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&schema.SkillProgress{}).
		Where("id = ? AND version = ?", sp.ID, sp.Version).
		Updates(map[string]any{
			"current_level":     sp.CurrentLevel,
			"current_xp":        sp.CurrentXP,
			"required_xp":       sp.RequiredXP,
			"version":           gorm.Expr("version + 1"),
			"last_practiced_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("写入技能进度失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	sp.Version++
	sp.LastPracticedAt = now
	return true, nil
}

// ListByProfile 获取档案的全部技能进度
func (r *SkillProgressRepository) ListByProfile(ctx context.Context, profileID string) ([]schema.SkillProgress, error) {
	var out []schema.SkillProgress
	err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Order("current_level DESC, current_xp DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询技能进度失败: %w", err)
	}
	return out, nil
}
