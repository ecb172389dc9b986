package repository

import (
	"context"
	"testing"
	"time"

	"github.com/yuqie6/gigledger/internal/testutil"
)

func TestAttributeRepositoryIncrement(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewAttributeRepository(db)
	ctx := context.Background()
	p := testutil.SeedProfile(t, db, "u1", time.Time{})

	if err := repo.Increment(ctx, p.ID, "vocal_talent", 5); err == nil {
		t.Fatalf("increment without row should fail")
	}
	if err := repo.Ensure(ctx, p.ID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := repo.Ensure(ctx, p.ID); err != nil {
		t.Fatalf("Ensure twice: %v", err)
	}
	if err := repo.Increment(ctx, p.ID, "vocal_talent", 5); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := repo.Increment(ctx, p.ID, "vocal_talent", 7); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := repo.Increment(ctx, p.ID, "drop table", 1); err == nil {
		t.Fatalf("unknown attribute should fail")
	}

	a, err := repo.GetByProfile(ctx, p.ID)
	if err != nil || a == nil {
		t.Fatalf("GetByProfile=%v err=%v", a, err)
	}
	if a.VocalTalent != 12 || a.AttributePointsSpent != 12 {
		t.Fatalf("attrs=%+v", a)
	}
}
