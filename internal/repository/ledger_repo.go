package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
)

// LedgerRepository 经验流水仓储（只追加）
type LedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建仓储
func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert 追加一条流水
func (r *LedgerRepository) Insert(ctx context.Context, e *schema.ExperienceLedgerEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}
	if err := r.db.WithContext(ctx).Create(e).Error; err != nil {
		return fmt.Errorf("写入经验流水失败: %w", err)
	}
	return nil
}

// ListBetween 查询 [start, end) 内的流水，按时间升序
func (r *LedgerRepository) ListBetween(ctx context.Context, start, end time.Time) ([]schema.ExperienceLedgerEntry, error) {
	var out []schema.ExperienceLedgerEntry
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("查询经验流水失败: %w", err)
	}
	return out, nil
}

// ListByProfile 最近的流水（倒序）
func (r *LedgerRepository) ListByProfile(ctx context.Context, profileID string, limit int) ([]schema.ExperienceLedgerEntry, error) {
	var out []schema.ExperienceLedgerEntry
	q := r.db.WithContext(ctx).Where("profile_id = ?", profileID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("查询经验流水失败: %w", err)
	}
	return out, nil
}
