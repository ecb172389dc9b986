package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// DailyXPCap 每日活动奖励的经验上限；属性点不受此限制
const DailyXPCap int64 = 250

var errGrantExists = errors.New("当日活动奖励已发放")

// AggregateResult 一次聚合的统计
type AggregateResult struct {
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Date      string `json:"date"`
}

// activityBreakdown 单条流水的换算明细
type activityBreakdown struct {
	Type string  `json:"type"`
	XP   int64   `json:"xp"`
	AP   float64 `json:"ap"`
}

type profileActivity struct {
	profileID string
	userID    string
	rawXP     int64
	apBasis   int64 // 属性点 × 10000，避免浮点累加误差
	breakdown []activityBreakdown
}

// DailyAggregator 把前一天的经验流水换算成活动奖励
// 按 (profile, date, activity_bonus) 幂等，可对同一天重复执行。
type DailyAggregator struct {
	store     *repository.Store
	publisher Publisher
	now       func() time.Time
}

// NewDailyAggregator 创建聚合器
func NewDailyAggregator(store *repository.Store, publisher Publisher) *DailyAggregator {
	return &DailyAggregator{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run 聚合 date（YYYY-MM-DD）当天的流水；date 为空时取 UTC 昨天
func (a *DailyAggregator) Run(ctx context.Context, date string) (*AggregateResult, error) {
	if date == "" {
		date = repository.PreviousDay(a.now())
	}
	start, next, err := repository.DayRange(date)
	if err != nil {
		return nil, invalidInput("invalid date: %s", date)
	}

	ctx, span := otel.Tracer("gigledger/service").Start(ctx, "daily_aggregator.run")
	defer span.End()
	span.SetAttributes(attribute.String("grant_date", date))

	result := &AggregateResult{Date: date}
	entries, err := a.store.Ledger.ListBetween(ctx, start, next)
	if err != nil {
		span.RecordError(err)
		return nil, internalError("读取经验流水失败", err)
	}
	if len(entries) == 0 {
		slog.Info("当日无经验流水，跳过聚合", "date", date)
		return result, nil
	}

	groups := groupActivity(entries)
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		switch err := a.grantProfile(ctx, date, g); {
		case err == nil:
			result.Processed++
		case errors.Is(err, errGrantExists):
			result.Skipped++
		default:
			result.Failed++
			slog.Error("活动奖励发放失败", "profile_id", g.profileID, "date", date, "error", err)
		}
	}

	span.SetAttributes(
		attribute.Int("processed", result.Processed),
		attribute.Int("skipped", result.Skipped),
		attribute.Int("failed", result.Failed),
	)
	slog.Info("每日活动奖励聚合完成", "date", date, "processed", result.Processed, "skipped", result.Skipped, "failed", result.Failed)
	return result, nil
}

func (a *DailyAggregator) grantProfile(ctx context.Context, date string, g *profileActivity) error {
	exists, err := a.store.Grants.Exists(ctx, g.profileID, date, schema.GrantSourceActivityBonus)
	if err != nil {
		return err
	}
	if exists {
		return errGrantExists
	}

	capped := min(g.rawXP, DailyXPCap)
	ap := g.apBasis / apBasisScale

	breakdown := make([]any, 0, len(g.breakdown))
	for _, b := range g.breakdown {
		breakdown = append(breakdown, map[string]any{"type": b.Type, "xp": b.XP, "ap": b.AP})
	}
	meta := schema.JSONMap{
		"raw_xp":           g.rawXP,
		"capped_xp":        capped,
		"attribute_points": ap,
		"activity_count":   len(g.breakdown),
		"breakdown":        breakdown,
	}

	err = a.store.Transaction(ctx, func(tx *repository.Store) error {
		created, err := tx.Grants.CreateIfAbsent(ctx, &schema.DailyXPGrant{
			ProfileID:             g.profileID,
			GrantDate:             date,
			Source:                schema.GrantSourceActivityBonus,
			XPAmount:              capped,
			AttributePointsAmount: ap,
			Metadata:              meta,
		})
		if err != nil {
			return err
		}
		if !created {
			return errGrantExists
		}
		return tx.Wallets.Credit(ctx, g.profileID, repository.WalletCredit{XP: capped, AttributePoints: ap})
	})
	if err != nil {
		return err
	}

	publishProgress(a.publisher, g.userID, g.profileID, "daily_activity_bonus", map[string]any{"xp": capped, "attribute_points": ap, "date": date})
	return nil
}

// groupActivity 按档案分组；经验为 0 的流水（如势头调整）不参与换算
func groupActivity(entries []schema.ExperienceLedgerEntry) []*profileActivity {
	byProfile := make(map[string]*profileActivity)
	for _, e := range entries {
		if e.XPAmount <= 0 || e.ProfileID == "" {
			continue
		}
		g, ok := byProfile[e.ProfileID]
		if !ok {
			g = &profileActivity{profileID: e.ProfileID, userID: e.UserID}
			byProfile[e.ProfileID] = g
		}
		activity := ParseActivityType(e.ActivityType)
		basis := saturatingMul(e.XPAmount, activity.apConversionBasis())
		g.rawXP = saturatingAdd(g.rawXP, e.XPAmount)
		g.apBasis = saturatingAdd(g.apBasis, basis)
		g.breakdown = append(g.breakdown, activityBreakdown{
			Type: string(activity),
			XP:   e.XPAmount,
			AP:   float64(basis) / apBasisScale,
		})
	}

	out := make([]*profileActivity, 0, len(byProfile))
	for _, g := range byProfile {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].profileID < out[j].profileID })
	return out
}

// saturatingAdd 非负数相加，溢出时取 MaxInt64
func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// saturatingMul 非负数相乘，溢出时取 MaxInt64
func saturatingMul(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
