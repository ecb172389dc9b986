package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GrantRepository 每日发放记录仓储
type GrantRepository struct {
	db *gorm.DB
}

// NewGrantRepository 创建仓储
func NewGrantRepository(db *gorm.DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Exists 当天该来源是否已有发放记录
func (r *GrantRepository) Exists(ctx context.Context, profileID, grantDate, source string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.DailyXPGrant{}).
		Where("profile_id = ? AND grant_date = ? AND source = ?", profileID, grantDate, source).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询发放记录失败: %w", err)
	}
	return count > 0, nil
}

// CreateIfAbsent 依赖唯一索引写入；已存在时返回 false 且不修改任何数据
func (r *GrantRepository) CreateIfAbsent(ctx context.Context, g *schema.DailyXPGrant) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(g)
	if res.Error != nil {
		return false, fmt.Errorf("写入发放记录失败: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListByDate 按日期与来源列出发放记录
func (r *GrantRepository) ListByDate(ctx context.Context, grantDate, source string) ([]schema.DailyXPGrant, error) {
	var out []schema.DailyXPGrant
	q := r.db.WithContext(ctx).Where("grant_date = ?", grantDate)
	if source != "" {
		q = q.Where("source = ?", source)
	}
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询发放记录失败: %w", err)
	}
	return out, nil
}
