package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingRepository 运营参数仓储
type SettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository 创建仓储
func NewSettingRepository(db *gorm.DB) *SettingRepository {
	return &SettingRepository{db: db}
}

// Get 读取参数，不存在返回 nil
func (r *SettingRepository) Get(ctx context.Context, key string) (schema.JSONMap, error) {
	var s schema.GameSetting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询参数失败: %w", err)
	}
	return s.Value, nil
}

// Put 写入参数（覆盖）
func (r *SettingRepository) Put(ctx context.Context, key string, value schema.JSONMap, updatedBy string) error {
	s := schema.GameSetting{Key: key, Value: value, UpdatedBy: updatedBy}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&s).Error
	if err != nil {
		return fmt.Errorf("写入参数失败: %w", err)
	}
	return nil
}
