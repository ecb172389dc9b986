package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttributeRepository 玩家属性仓储
type AttributeRepository struct {
	db *gorm.DB
}

// NewAttributeRepository 创建仓储
func NewAttributeRepository(db *gorm.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

// GetByProfile 获取属性，不存在返回 nil
func (r *AttributeRepository) GetByProfile(ctx context.Context, profileID string) (*schema.PlayerAttributes, error) {
	var a schema.PlayerAttributes
	err := r.db.WithContext(ctx).Where("profile_id = ?", profileID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询属性失败: %w", err)
	}
	return &a, nil
}

// Ensure 属性行不存在时创建全零行
func (r *AttributeRepository) Ensure(ctx context.Context, profileID string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&schema.PlayerAttributes{ProfileID: profileID}).Error
	if err != nil {
		return fmt.Errorf("初始化属性失败: %w", err)
	}
	return nil
}

// Increment 原子增加某项属性，并同步累加 attribute_points_spent
func (r *AttributeRepository) Increment(ctx context.Context, profileID, key string, amount int64) error {
	column, ok := schema.AttributeColumns[key]
	if !ok {
		return fmt.Errorf("未知属性: %s", key)
	}
	res := r.db.WithContext(ctx).Model(&schema.PlayerAttributes{}).
		Where("profile_id = ?", profileID).
		Updates(map[string]any{
			column:                   gorm.Expr(column+" + ?", amount),
			"attribute_points_spent": gorm.Expr("attribute_points_spent + ?", amount),
		})
	if res.Error != nil {
		return fmt.Errorf("更新属性失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("更新属性失败: 档案 %s 没有属性行", profileID)
	}
	return nil
}
