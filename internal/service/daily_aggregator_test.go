package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuqie6/gigledger/internal/schema"
	"github.com/yuqie6/gigledger/internal/testutil"
	"gorm.io/gorm"
)

func seedLedger(t *testing.T, env *testEnv, p *schema.Profile, activity string, xp int64, at time.Time) {
	t.Helper()
	err := env.store.Ledger.Insert(context.Background(), &schema.ExperienceLedgerEntry{
		ProfileID:    p.ID,
		UserID:       p.UserID,
		ActivityType: activity,
		XPAmount:     xp,
		CreatedAt:    at,
	})
	require.NoError(t, err)
}

func TestDailyAggregatorCapsXPAndConvertsAP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	db := env.store.DB()
	yesterday := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

	heavy := testutil.SeedProfile(t, db, "u1", time.Time{})
	light := testutil.SeedProfile(t, db, "u2", time.Time{})

	// heavy：原始 1000 XP，AP = 400×0.6 + 600×0.4 = 480
	seedLedger(t, env, heavy, "exercise", 400, yesterday.Add(8*time.Hour))
	seedLedger(t, env, heavy, "recording_complete", 600, yesterday.Add(20*time.Hour))
	// light：10×0.4 + 21×0.5 = 14.5 → 14
	seedLedger(t, env, light, "recording_complete", 10, yesterday)
	seedLedger(t, env, light, "karaoke", 21, yesterday.Add(24*time.Hour-time.Millisecond))
	// 窗口外与零经验流水不计入
	seedLedger(t, env, light, "exercise", 500, yesterday.Add(-time.Second))
	seedLedger(t, env, light, "exercise", 500, yesterday.Add(24*time.Hour))
	seedLedger(t, env, light, "admin_momentum", 0, yesterday.Add(time.Hour))

	res, err := env.aggregator.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, AggregateResult{Processed: 2, Date: "2026-10-18"}, *res)

	w, err := env.store.Wallets.GetByProfile(ctx, heavy.ID)
	require.NoError(t, err)
	assert.Equal(t, DailyXPCap, w.XPBalance)
	assert.Equal(t, DailyXPCap, w.LifetimeXP)
	assert.Equal(t, int64(480), w.AttributePointsEarned)

	w, err = env.store.Wallets.GetByProfile(ctx, light.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(31), w.XPBalance)
	assert.Equal(t, int64(14), w.AttributePointsEarned)

	grants, err := env.store.Grants.ListByDate(ctx, "2026-10-18", schema.GrantSourceActivityBonus)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	for _, g := range grants {
		if g.ProfileID != heavy.ID {
			continue
		}
		raw, _ := schema.GetFloat(g.Metadata, "raw_xp")
		capped, _ := schema.GetFloat(g.Metadata, "capped_xp")
		count, _ := schema.GetFloat(g.Metadata, "activity_count")
		assert.Equal(t, float64(1000), raw)
		assert.Equal(t, float64(250), capped)
		assert.Equal(t, float64(2), count)
		assert.Len(t, g.Metadata["breakdown"], 2)
		assert.Equal(t, int64(480), g.AttributePointsAmount)
	}
}

func TestDailyAggregatorIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	seedLedger(t, env, p, "gig_performed", 120, time.Date(2026, 10, 18, 21, 0, 0, 0, time.UTC))

	first, err := env.aggregator.Run(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, 1, first.Processed)

	before, err := env.store.Wallets.GetByProfile(ctx, p.ID)
	require.NoError(t, err)

	second, err := env.aggregator.Run(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, 0, second.Processed)
	assert.Equal(t, 1, second.Skipped)

	after, err := env.store.Wallets.GetByProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, before.XPBalance, after.XPBalance)
	assert.Equal(t, before.LifetimeXP, after.LifetimeXP)
	assert.Equal(t, before.AttributePointsEarned, after.AttributePointsEarned)
}

func TestDailyAggregatorNoEntriesAndBadDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	res, err := env.aggregator.Run(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, AggregateResult{Date: "2026-10-18"}, *res)

	_, err = env.aggregator.Run(ctx, "18/10/2026")
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestDailyAggregatorDoesNotTouchStipendGrant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})

	// 同日已有签到记录，活动奖励依然照发
	_, err := env.store.Grants.CreateIfAbsent(ctx, &schema.DailyXPGrant{ProfileID: p.ID, GrantDate: "2026-10-18", Source: schema.GrantSourceDailyStipend, XPAmount: 5})
	require.NoError(t, err)
	seedLedger(t, env, p, "busking", 40, time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC))

	res, err := env.aggregator.Run(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.NotEmpty(t, env.publisher.Events())
}

func TestDailyAggregatorSaturatesHugeLedgerRows(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	seedLedger(t, env, p, "admin_grant", 2_000_000_000_000_000, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	seedLedger(t, env, p, "exercise", math.MaxInt64, time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC))

	res, err := env.aggregator.Run(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, AggregateResult{Processed: 1, Date: "2026-10-18"}, *res)

	w, err := env.store.Wallets.GetByProfile(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, DailyXPCap, w.XPBalance)
	assert.Equal(t, int64(math.MaxInt64/apBasisScale), w.AttributePointsEarned)
}

func TestDailyAggregatorIsolatesProfileFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	db := env.store.DB()
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

	good := testutil.SeedProfile(t, db, "u1", time.Time{})
	bad := testutil.SeedProfile(t, db, "u2", time.Time{})
	seedLedger(t, env, good, "busking", 40, at)
	seedLedger(t, env, bad, "busking", 60, at)

	const hook = "test:fail_activity_grant"
	err := db.Callback().Create().Before("gorm:create").Register(hook, func(tx *gorm.DB) {
		if g, ok := tx.Statement.Dest.(*schema.DailyXPGrant); ok && g.ProfileID == bad.ID {
			tx.AddError(errors.New("磁盘已满"))
		}
	})
	require.NoError(t, err)

	res, err := env.aggregator.Run(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, AggregateResult{Processed: 1, Failed: 1, Date: "2026-10-18"}, *res)

	w, err := env.store.Wallets.GetByProfile(ctx, good.ID)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(40), w.XPBalance)
	assert.Equal(t, int64(20), w.AttributePointsEarned)

	w, err = env.store.Wallets.GetByProfile(ctx, bad.ID)
	require.NoError(t, err)
	assert.Nil(t, w)

	// 故障恢复后重跑：失败的档案补发，已发放的跳过
	require.NoError(t, db.Callback().Create().Remove(hook))
	res, err = env.aggregator.Run(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, AggregateResult{Processed: 1, Skipped: 1, Date: "2026-10-18"}, *res)

	w, err = env.store.Wallets.GetByProfile(ctx, bad.ID)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(60), w.XPBalance)
}
