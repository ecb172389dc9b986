package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store 聚合全部仓储，便于在同一事务内跨表写入
type Store struct {
	db *gorm.DB

	Profiles   *ProfileRepository
	Wallets    *WalletRepository
	Skills     *SkillProgressRepository
	Attributes *AttributeRepository
	Grants     *GrantRepository
	Ledger     *LedgerRepository
	Roles      *RoleRepository
	Settings   *SettingRepository
}

// NewStore 创建仓储集合
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Profiles:   NewProfileRepository(db),
		Wallets:    NewWalletRepository(db),
		Skills:     NewSkillProgressRepository(db),
		Attributes: NewAttributeRepository(db),
		Grants:     NewGrantRepository(db),
		Ledger:     NewLedgerRepository(db),
		Roles:      NewRoleRepository(db),
		Settings:   NewSettingRepository(db),
	}
}

// Transaction 在事务中执行 fn；fn 内只能使用 tx 提供的仓储。
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB 返回底层连接（迁移/诊断用）
func (s *Store) DB() *gorm.DB {
	return s.db
}
