package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/gigledger/internal/testutil"
)

func TestWalletRepositoryCreditCreatesThenAccumulates(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	p := testutil.SeedProfile(t, db, "u1", time.Time{})

	if w, err := repo.GetByProfile(ctx, p.ID); err != nil || w != nil {
		t.Fatalf("wallet before credit = %+v err=%v, want nil", w, err)
	}

	if err := repo.Credit(ctx, p.ID, WalletCredit{XP: 30}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}
	if err := repo.Credit(ctx, p.ID, WalletCredit{XP: 12, AttributePoints: 5}); err != nil {
		t.Fatalf("Credit error: %v", err)
	}

	w, err := repo.GetByProfile(ctx, p.ID)
	if err != nil || w == nil {
		t.Fatalf("GetByProfile err=%v w=%v", err, w)
	}
	if w.XPBalance != 42 || w.LifetimeXP != 42 || w.AttributePointsEarned != 5 {
		t.Fatalf("wallet=%+v, want balance 42 lifetime 42 ap 5", w)
	}
}

func TestWalletRepositoryCreditRejectsNegative(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewWalletRepository(db)
	if err := repo.Credit(context.Background(), "p", WalletCredit{XP: -1}); err == nil {
		t.Fatalf("negative credit should fail")
	}
}

func TestWalletRepositoryDebitIsConditional(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	p := testutil.SeedProfile(t, db, "u1", time.Time{})
	testutil.SeedWallet(t, db, p.ID, 50, 50)

	ok, err := repo.Debit(ctx, p.ID, 60)
	if err != nil || ok {
		t.Fatalf("Debit(60) ok=%v err=%v, want false", ok, err)
	}
	ok, err = repo.Debit(ctx, p.ID, 50)
	if err != nil || !ok {
		t.Fatalf("Debit(50) ok=%v err=%v, want true", ok, err)
	}

	w, _ := repo.GetByProfile(ctx, p.ID)
	if w.XPBalance != 0 || w.XPSpent != 50 || w.LifetimeXP != 50 {
		t.Fatalf("wallet=%+v", w)
	}

	if ok, _ := repo.Debit(ctx, "missing", 1); ok {
		t.Fatalf("debit on missing wallet should not succeed")
	}
}

func TestWalletRepositoryConcurrentDebitsNeverOverspend(t *testing.T) {
	db := testutil.OpenTestDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	p := testutil.SeedProfile(t, db, "u1", time.Time{})
	testutil.SeedWallet(t, db, p.ID, 100, 100)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Debit(ctx, p.ID, 25)
			if err != nil {
				t.Errorf("Debit error: %v", err)
				return
			}
			if ok {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if success != 4 {
		t.Fatalf("successful debits=%d, want 4", success)
	}
	w, _ := repo.GetByProfile(ctx, p.ID)
	if w.XPBalance != 0 || w.XPSpent != 100 {
		t.Fatalf("wallet=%+v, want balance 0 spent 100", w)
	}
}
