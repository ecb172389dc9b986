package testutil

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/yuqie6/gigledger/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenTestDB 打开内存 SQLite 并自动迁移所有表
// 内存库每个连接各自独立，因此连接池固定为 1。
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(
		&schema.Profile{},
		&schema.XPWallet{},
		&schema.SkillProgress{},
		&schema.PlayerAttributes{},
		&schema.DailyXPGrant{},
		&schema.ExperienceLedgerEntry{},
		&schema.UserRole{},
		&schema.GameSetting{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

// SeedProfile 创建一个档案；createdAt 为零值时使用当前时间
func SeedProfile(t *testing.T, db *gorm.DB, userID string, createdAt time.Time) *schema.Profile {
	t.Helper()
	p := &schema.Profile{
		UserID:      userID,
		Username:    "player-" + userID,
		DisplayName: "Player " + userID,
		Level:       1,
		Health:      schema.MaxHealth,
		CreatedAt:   createdAt.UTC(),
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

// SeedWallet 直接写入钱包余额
func SeedWallet(t *testing.T, db *gorm.DB, profileID string, balance, lifetime int64) *schema.XPWallet {
	t.Helper()
	w := &schema.XPWallet{ProfileID: profileID, XPBalance: balance, LifetimeXP: lifetime, LastUpdatedAt: time.Now().UTC()}
	if err := db.Create(w).Error; err != nil {
		t.Fatalf("seed wallet: %v", err)
	}
	return w
}
