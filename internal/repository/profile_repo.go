package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
)

// ProfileRepository 玩家档案仓储
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建仓储
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create 创建档案
func (r *ProfileRepository) Create(ctx context.Context, p *schema.Profile) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("创建档案失败: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取档案，不存在返回 nil
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*schema.Profile, error) {
	var p schema.Profile
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询档案失败: %w", err)
	}
	return &p, nil
}

// GetFirstByUser 取用户最早创建的档案（created_at 升序，id 兜底排序）
func (r *ProfileRepository) GetFirstByUser(ctx context.Context, userID string) (*schema.Profile, error) {
	var p schema.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Limit(1).
		Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询用户档案失败: %w", err)
	}
	return &p, nil
}

// GetByIDs 批量获取档案
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []string) ([]schema.Profile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []schema.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("批量查询档案失败: %w", err)
	}
	return out, nil
}

// ListAll 获取全部档案（管理员全量发放用）
func (r *ProfileRepository) ListAll(ctx context.Context) ([]schema.Profile, error) {
	var out []schema.Profile
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询档案失败: %w", err)
	}
	return out, nil
}

// AdjustHealth 原子调整健康值并夹紧到 [min, max]，返回调整后的值
func (r *ProfileRepository) AdjustHealth(ctx context.Context, id string, delta, min, max int) (int, error) {
	v, err := r.adjustClamped(ctx, id, "health", delta, min, max)
	if err != nil {
		return 0, fmt.Errorf("调整健康值失败: %w", err)
	}
	return v, nil
}

// AdjustMomentum 原子调整势头值并夹紧到 [min, max]，返回调整后的值
func (r *ProfileRepository) AdjustMomentum(ctx context.Context, id string, delta, min, max int) (int, error) {
	v, err := r.adjustClamped(ctx, id, "momentum", delta, min, max)
	if err != nil {
		return 0, fmt.Errorf("调整势头失败: %w", err)
	}
	return v, nil
}

// adjustClamped column 只接受本文件内的常量列名
func (r *ProfileRepository) adjustClamped(ctx context.Context, id, column string, delta, min, max int) (int, error) {
	// SQLite 的标量 MIN/MAX 与 Postgres 的 LEAST/GREATEST 等价
	expr := gorm.Expr("MIN(?, MAX(?, "+column+" + ?))", max, min, delta)
	if r.db.Dialector.Name() == DriverPostgres {
		expr = gorm.Expr("LEAST(?, GREATEST(?, "+column+" + ?))", max, min, delta)
	}
	res := r.db.WithContext(ctx).Model(&schema.Profile{}).Where("id = ?", id).Update(column, expr)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("档案 %s 不存在", id)
	}

	var out struct{ Value int }
	err := r.db.WithContext(ctx).Model(&schema.Profile{}).
		Select(column+" AS value").
		Where("id = ?", id).
		Scan(&out).Error
	if err != nil {
		return 0, err
	}
	return out.Value, nil
}
