package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuqie6/gigledger/internal/testutil"
)

func TestLoadProfileReportListsSkills(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	testutil.SeedWallet(t, env.store.DB(), p.ID, 500, 500)

	report, err := LoadProfileReport(ctx, env.store, "u1")
	require.NoError(t, err)
	assert.Equal(t, p.ID, report.Profile.ID)
	assert.NotNil(t, report.Skills)
	assert.Empty(t, report.Skills)

	state := report.ProfileState
	_, _, err = env.progression.SpendSkillXP(ctx, state, SpendSkillXPInput{SkillSlug: "Guitar", XP: int64Ptr(400)})
	require.NoError(t, err)
	_, _, err = env.progression.SpendSkillXP(ctx, state, SpendSkillXPInput{SkillSlug: "vocals", XP: int64Ptr(50)})
	require.NoError(t, err)

	report, err = LoadProfileReport(ctx, env.store, "u1")
	require.NoError(t, err)
	require.Len(t, report.Skills, 2)
	assert.Equal(t, "guitar", report.Skills[0].SkillSlug)
	assert.Equal(t, 2, report.Skills[0].CurrentLevel)
	assert.Equal(t, "vocals", report.Skills[1].SkillSlug)
	assert.Equal(t, int64(50), report.Wallet.XPBalance)

	_, err = LoadProfileReport(ctx, env.store, "nobody")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadEconomyTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	totals, err := LoadEconomyTotals(ctx, env.store)
	require.NoError(t, err)
	assert.Equal(t, EconomyTotals{}, totals)

	p := testutil.SeedProfile(t, env.store.DB(), "u1", time.Time{})
	q := testutil.SeedProfile(t, env.store.DB(), "u2", time.Time{})
	testutil.SeedWallet(t, env.store.DB(), p.ID, 30, 100)
	testutil.SeedWallet(t, env.store.DB(), q.ID, 5, 5)

	totals, err = LoadEconomyTotals(ctx, env.store)
	require.NoError(t, err)
	assert.Equal(t, EconomyTotals{XPBalance: 35, LifetimeXP: 105, XPSpent: 70}, totals)
}
