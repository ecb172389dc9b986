package repository

import (
	"path/filepath"
	"testing"

	"github.com/yuqie6/gigledger/internal/schema"
)

func TestNewDatabaseMigratesToLatest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "ledger.db")
	d, err := NewDatabase(Options{Driver: "SQLite", DBPath: path})
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	if d.SafeMode || d.SchemaVersion != latestSchemaVersion {
		t.Fatalf("safe=%v version=%d err=%q", d.SafeMode, d.SchemaVersion, d.MigrationError)
	}
	for _, m := range Models() {
		if !d.DB.Migrator().HasTable(m) {
			t.Fatalf("table for %T missing", m)
		}
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// 重新打开时不再重复迁移
	d, err = NewDatabase(Options{DBPath: path})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d.Close()
	var meta schema.SchemaMeta
	if err := d.DB.First(&meta, 1).Error; err != nil || meta.SchemaVersion != latestSchemaVersion {
		t.Fatalf("meta=%+v err=%v", meta, err)
	}
}

func TestNewDatabaseRejectsBadOptions(t *testing.T) {
	if _, err := NewDatabase(Options{Driver: "mysql"}); err == nil {
		t.Fatalf("unsupported driver should fail")
	}
	if _, err := NewDatabase(Options{Driver: DriverSQLite}); err == nil {
		t.Fatalf("empty sqlite path should fail")
	}
	if _, err := NewDatabase(Options{Driver: DriverPostgres, DSN: "  "}); err == nil {
		t.Fatalf("empty postgres dsn should fail")
	}
}
