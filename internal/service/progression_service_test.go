package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuqie6/gigledger/internal/schema"
	"github.com/yuqie6/gigledger/internal/testutil"
)

func TestClaimDailyXPOncePerDay(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", testNow.AddDate(-1, 0, 0))

	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, res, err := env.progression.ClaimDailyXP(ctx, state, ClaimDailyXPInput{Metadata: schema.JSONMap{"source": "web"}})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.XPAwarded)
	assert.Equal(t, "2026-10-19", res.GrantDate)
	assert.Equal(t, int64(5), fresh.Wallet.XPBalance)
	assert.Equal(t, int64(5), fresh.Wallet.LifetimeXP)
	assert.Equal(t, int64(5), fresh.Wallet.SkillXPBalance)

	_, _, err = env.progression.ClaimDailyXP(ctx, fresh, ClaimDailyXPInput{})
	require.ErrorIs(t, err, ErrAlreadyClaimed)

	w, err := env.store.Wallets.GetByProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), w.XPBalance)
	assert.Len(t, env.publisher.Events(), 1)
}

func TestClaimDailyXPNewPlayerAndSettingOverride(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fresh := testutil.SeedProfile(t, env.store.DB(), "u1", testNow.AddDate(0, 0, -3))
	veteran := testutil.SeedProfile(t, env.store.DB(), "u2", testNow.AddDate(0, -6, 0))

	state, err := FetchProfileState(ctx, env.store, fresh.ID)
	require.NoError(t, err)
	_, res, err := env.progression.ClaimDailyXP(ctx, state, ClaimDailyXPInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.XPAwarded)

	require.NoError(t, env.store.Settings.Put(ctx, schema.SettingDailyXPStipend, schema.JSONMap{"veteran_amount": 8}, "ops"))
	state, err = FetchProfileState(ctx, env.store, veteran.ID)
	require.NoError(t, err)
	_, res, err = env.progression.ClaimDailyXP(ctx, state, ClaimDailyXPInput{})
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.XPAwarded)
}

func TestClaimDailyXPConcurrentClaimsGrantOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", testNow.AddDate(-1, 0, 0))
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		claimed   int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := env.progression.ClaimDailyXP(ctx, state, ClaimDailyXPInput{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case CodeOf(err) == CodeAlreadyClaimed:
				claimed++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 5, claimed)
	w, err := env.store.Wallets.GetByProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), w.XPBalance)
}

func TestSpendAttributeXP(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	testutil.SeedWallet(t, env.store.DB(), p.ID, 50, 50)
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, res, err := env.progression.SpendAttributeXP(ctx, state, SpendAttributeXPInput{AttributeKey: "Vocal_Talent", XP: int64Ptr(20)})
	require.NoError(t, err)
	assert.Equal(t, "vocal_talent", res.AttributeKey)
	assert.Equal(t, int64(20), res.NewValue)
	assert.Equal(t, int64(30), fresh.Wallet.XPBalance)
	assert.Equal(t, int64(20), fresh.Wallet.XPSpent)
	assert.Equal(t, int64(50), fresh.Wallet.LifetimeXP)
	assert.Equal(t, int64(20), fresh.Attributes.AttributePointsSpent)

	// 默认 10 XP
	fresh, res, err = env.progression.SpendAttributeXP(ctx, fresh, SpendAttributeXPInput{AttributeKey: "composition"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.XPSpent)
	assert.Equal(t, int64(20), fresh.Wallet.XPBalance)

	_, _, err = env.progression.SpendAttributeXP(ctx, fresh, SpendAttributeXPInput{AttributeKey: "composition", XP: int64Ptr(21)})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, _, err = env.progression.SpendAttributeXP(ctx, fresh, SpendAttributeXPInput{AttributeKey: "charisma"})
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
	_, _, err = env.progression.SpendAttributeXP(ctx, fresh, SpendAttributeXPInput{AttributeKey: "composition", XP: int64Ptr(0)})
	assert.Equal(t, CodeInvalidInput, CodeOf(err))

	w, err := env.store.Wallets.GetByProfile(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), w.XPBalance)
	assert.Equal(t, int64(30), w.XPSpent)
}

func TestSpendSkillXPLevelsUp(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	testutil.SeedWallet(t, env.store.DB(), p.ID, 500, 500)
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, res, err := env.progression.SpendSkillXP(ctx, state, SpendSkillXPInput{SkillSlug: "Lead Guitar", XP: int64Ptr(400)})
	require.NoError(t, err)
	assert.Equal(t, "lead-guitar", res.SkillSlug)
	assert.Equal(t, 0, res.PreviousLevel)
	assert.Equal(t, 2, res.NewLevel)
	assert.Equal(t, 2, res.LevelsGained)
	assert.Equal(t, int64(150), res.CurrentXP)
	assert.Equal(t, int64(225), res.RequiredXP)
	assert.Equal(t, int64(100), fresh.Wallet.XPBalance)

	sp, err := env.store.Skills.Get(ctx, p.ID, "lead-guitar")
	require.NoError(t, err)
	require.NotNil(t, sp)
	assert.Equal(t, 2, sp.CurrentLevel)
	assert.Equal(t, int64(150), sp.CurrentXP)
	assert.Equal(t, int64(225), sp.RequiredXP)

	// 默认 25 XP：150 + 25 仍不足 225
	_, res, err = env.progression.SpendSkillXP(ctx, fresh, SpendSkillXPInput{SkillSlug: "lead-guitar"})
	require.NoError(t, err)
	assert.Equal(t, 0, res.LevelsGained)
	assert.Equal(t, int64(175), res.CurrentXP)
}

func TestSpendSkillXPInsufficientBalanceLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	testutil.SeedWallet(t, env.store.DB(), p.ID, 10, 10)
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	_, _, err = env.progression.SpendSkillXP(ctx, state, SpendSkillXPInput{SkillSlug: "drums"})
	require.ErrorIs(t, err, ErrInsufficientBalance)

	sp, err := env.store.Skills.Get(ctx, p.ID, "drums")
	require.NoError(t, err)
	assert.Nil(t, sp)

	_, _, err = env.progression.SpendSkillXP(ctx, state, SpendSkillXPInput{SkillSlug: "  !! "})
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestAwardActionXPDrainsHealthAndWritesLedger(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, res, err := env.progression.AwardActionXP(ctx, state, AwardActionXPInput{
		XP:        40,
		Category:  "performance",
		ActionKey: "gig_performed",
		Metadata:  schema.JSONMap{"duration_minutes": float64(120), "venue": "The Basement"},
	})
	require.NoError(t, err)
	assert.Equal(t, 30, res.HealthDrain)
	assert.Equal(t, 70, res.Health)
	assert.Equal(t, 70, fresh.Profile.Health)
	assert.Equal(t, int64(40), fresh.Wallet.XPBalance)
	assert.Equal(t, int64(40), fresh.Wallet.LifetimeXP)

	entries, err := env.store.Ledger.ListByProfile(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "gig_performed", entries[0].ActivityType)
	assert.Equal(t, int64(40), entries[0].XPAmount)
	assert.Equal(t, "The Basement", schema.GetString(entries[0].Metadata, "venue"))
	drain, _ := schema.GetFloat(entries[0].Metadata, "health_drain")
	assert.Equal(t, float64(30), drain)

	_, _, err = env.progression.AwardActionXP(ctx, fresh, AwardActionXPInput{XP: 0, ActionKey: "busking"})
	assert.Equal(t, CodeInvalidInput, CodeOf(err))
}

func TestAwardActionXPHugeDurationDrainsToZero(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, res, err := env.progression.AwardActionXP(ctx, state, AwardActionXPInput{
		XP:       5,
		Metadata: schema.JSONMap{"activity_type": "gig_performed", "duration_minutes": 1e20},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.MaxHealth, res.HealthDrain)
	assert.Equal(t, 0, res.Health)
	assert.Equal(t, 0, fresh.Profile.Health)
}

func TestAwardActionXPDefaultsToGeneralActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, res, err := env.progression.AwardActionXP(ctx, state, AwardActionXPInput{
		XP:       12,
		Metadata: schema.JSONMap{"duration_minutes": float64(60)},
	})
	require.NoError(t, err)
	assert.Equal(t, string(ActivityGeneral), res.ActivityType)
	assert.Equal(t, 5, res.HealthDrain)
	assert.Equal(t, int64(12), fresh.Wallet.XPBalance)

	entries, err := env.store.Ledger.ListByProfile(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "general", entries[0].ActivityType)
}

func TestAwardActionXPWithoutUserIDStillCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "", time.Time{})
	state, err := FetchProfileState(ctx, env.store, p.ID)
	require.NoError(t, err)

	fresh, _, err := env.progression.AwardActionXP(ctx, state, AwardActionXPInput{XP: 15, ActionKey: "busking"})
	require.NoError(t, err)
	assert.Equal(t, int64(15), fresh.Wallet.XPBalance)

	entries, err := env.store.Ledger.ListByProfile(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchProfileStateDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := FetchProfileState(ctx, env.store, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = LoadActiveProfile(ctx, env.store, "nobody")
	require.ErrorIs(t, err, ErrNotFound)

	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	state, err := LoadActiveProfile(ctx, env.store, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, state.Profile.ID)
	assert.Equal(t, int64(0), state.Wallet.XPBalance)
	assert.Nil(t, state.Wallet.LastUpdatedAt)
	require.NotNil(t, state.Attributes)
	assert.Equal(t, PointAvailability{}, state.PointAvailability)
}

func TestPointAvailabilityClampsAnomalies(t *testing.T) {
	w := &schema.XPWallet{AttributePointsEarned: 5, SkillPointsEarned: -3}
	a := &schema.PlayerAttributes{AttributePointsSpent: 9}
	got := CalcPointAvailability(w, a)
	assert.Equal(t, int64(0), got.AttributePointsAvailable)
	assert.Equal(t, int64(0), got.SkillPointsAvailable)

	w.AttributePointsEarned = 12
	w.SkillPointsEarned = 4
	got = CalcPointAvailability(w, a)
	assert.Equal(t, int64(3), got.AttributePointsAvailable)
	assert.Equal(t, int64(4), got.SkillPointsAvailable)
}
