package repository

import (
	"context"
	"fmt"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository 用户角色仓储
type RoleRepository struct {
	db *gorm.DB
}

// NewRoleRepository 创建仓储
func NewRoleRepository(db *gorm.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// HasRole 用户是否拥有角色
func (r *RoleRepository) HasRole(ctx context.Context, userID, role string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.UserRole{}).
		Where("user_id = ? AND role = ?", userID, role).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询角色失败: %w", err)
	}
	return count > 0, nil
}

// Grant 授予角色（幂等）
func (r *RoleRepository) Grant(ctx context.Context, userID, role string) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&schema.UserRole{UserID: userID, Role: role}).Error
	if err != nil {
		return fmt.Errorf("授予角色失败: %w", err)
	}
	return nil
}

// Revoke 撤销角色
func (r *RoleRepository) Revoke(ctx context.Context, userID, role string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&schema.UserRole{}).Error
	if err != nil {
		return fmt.Errorf("撤销角色失败: %w", err)
	}
	return nil
}
