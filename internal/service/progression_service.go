package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/schema"
)

const maxSkillCASAttempts = 3

// ClaimDailyXPInput 领取每日经验
type ClaimDailyXPInput struct {
	Metadata schema.JSONMap `json:"metadata"`
}

// ClaimDailyXPResult 领取结果
type ClaimDailyXPResult struct {
	XPAwarded int64  `json:"xp_awarded"`
	GrantDate string `json:"grant_date"`
}

// SpendAttributeXPInput 花经验提升属性；XP 为空时用默认值
type SpendAttributeXPInput struct {
	AttributeKey string `json:"attribute_key"`
	XP           *int64 `json:"xp"`
}

// SpendAttributeXPResult 属性花费结果
type SpendAttributeXPResult struct {
	AttributeKey string `json:"attribute_key"`
	XPSpent      int64  `json:"xp_spent"`
	NewValue     int64  `json:"new_value"`
}

// SpendSkillXPInput 花经验升级技能；XP 为空时用默认值
type SpendSkillXPInput struct {
	SkillSlug string `json:"skill_slug"`
	XP        *int64 `json:"xp"`
}

// SpendSkillXPResult 技能升级结果
type SpendSkillXPResult struct {
	SkillSlug     string `json:"skill_slug"`
	XPSpent       int64  `json:"xp_spent"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
	LevelsGained  int    `json:"levels_gained"`
	CurrentXP     int64  `json:"current_xp"`
	RequiredXP    int64  `json:"required_xp"`
}

// AwardActionXPInput 游戏行为奖励经验
type AwardActionXPInput struct {
	XP        int64          `json:"xp"`
	Category  string         `json:"category"`
	ActionKey string         `json:"action_key"`
	Metadata  schema.JSONMap `json:"metadata"`
}

// AwardActionXPResult 行为奖励结果
type AwardActionXPResult struct {
	XPAwarded    int64  `json:"xp_awarded"`
	ActivityType string `json:"activity_type"`
	HealthDrain  int    `json:"health_drain"`
	Health       int    `json:"health"`
}

// ProgressionService 玩家自助的经验操作
type ProgressionService struct {
	store     *repository.Store
	publisher Publisher
	now       func() time.Time
}

// NewProgressionService 创建进度服务
func NewProgressionService(store *repository.Store, publisher Publisher) *ProgressionService {
	return &ProgressionService{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ClaimDailyXP 每个档案每个 UTC 日只能领取一次
func (s *ProgressionService) ClaimDailyXP(ctx context.Context, state *ProfileState, in ClaimDailyXPInput) (*ProfileState, *ClaimDailyXPResult, error) {
	profile := state.Profile
	now := s.now().UTC()
	grantDate := now.Format(repository.DateLayout)

	exists, err := s.store.Grants.Exists(ctx, profile.ID, grantDate, schema.GrantSourceDailyStipend)
	if err != nil {
		return nil, nil, internalError("查询签到记录失败", err)
	}
	if exists {
		return nil, nil, ErrAlreadyClaimed
	}

	cfg, err := loadStipendConfig(ctx, s.store)
	if err != nil {
		slog.Warn("读取签到配置失败，使用默认值", "error", err)
	}
	amount := cfg.AmountFor(profile.CreatedAt, now)

	meta := in.Metadata.Clone()
	meta["profile_age_days"] = int(now.Sub(profile.CreatedAt).Hours() / 24)
	meta["new_player_days"] = cfg.NewPlayerDays

	// 唯一索引兜底并发领取：插入 0 行即视为已领取
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		created, err := tx.Grants.CreateIfAbsent(ctx, &schema.DailyXPGrant{
			ProfileID: profile.ID,
			GrantDate: grantDate,
			Source:    schema.GrantSourceDailyStipend,
			XPAmount:  amount,
			Metadata:  meta,
		})
		if err != nil {
			return err
		}
		if !created {
			return ErrAlreadyClaimed
		}
		return tx.Wallets.Credit(ctx, profile.ID, repository.WalletCredit{XP: amount})
	})
	if err != nil {
		return nil, nil, asError("领取每日经验失败", err)
	}

	slog.Info("每日经验已领取", "profile_id", profile.ID, "xp", amount, "date", grantDate)
	publishProgress(s.publisher, profile.UserID, profile.ID, ActionClaimDailyXP, map[string]any{"xp": amount})

	fresh, err := FetchProfileState(ctx, s.store, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	return fresh, &ClaimDailyXPResult{XPAwarded: amount, GrantDate: grantDate}, nil
}

// SpendAttributeXP 1:1 把经验转成属性值
func (s *ProgressionService) SpendAttributeXP(ctx context.Context, state *ProfileState, in SpendAttributeXPInput) (*ProfileState, *SpendAttributeXPResult, error) {
	profile := state.Profile
	key := strings.ToLower(strings.TrimSpace(in.AttributeKey))
	if key == "" {
		return nil, nil, invalidInput("attribute_key is required")
	}
	if _, ok := schema.AttributeColumns[key]; !ok {
		return nil, nil, invalidInput("Unknown attribute: %s", in.AttributeKey)
	}
	xp, err := spendAmount(in.XP, DefaultAttributeXPSpend)
	if err != nil {
		return nil, nil, err
	}

	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Wallets.Debit(ctx, profile.ID, xp)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}
		if err := tx.Attributes.Ensure(ctx, profile.ID); err != nil {
			return err
		}
		return tx.Attributes.Increment(ctx, profile.ID, key, xp)
	})
	if err != nil {
		return nil, nil, asError("花费属性经验失败", err)
	}

	publishProgress(s.publisher, profile.UserID, profile.ID, ActionSpendAttributeXP, map[string]any{"attribute_key": key, "xp": xp})

	fresh, err := FetchProfileState(ctx, s.store, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	newValue, _ := fresh.Attributes.Value(key)
	return fresh, &SpendAttributeXPResult{AttributeKey: key, XPSpent: xp, NewValue: newValue}, nil
}

// SpendSkillXP 扣经验并按几何门槛结算技能等级
func (s *ProgressionService) SpendSkillXP(ctx context.Context, state *ProfileState, in SpendSkillXPInput) (*ProfileState, *SpendSkillXPResult, error) {
	profile := state.Profile
	slug := NormalizeSkillSlug(in.SkillSlug)
	if slug == "" {
		return nil, nil, invalidInput("skill_slug is required")
	}
	xp, err := spendAmount(in.XP, DefaultSkillXPSpend)
	if err != nil {
		return nil, nil, err
	}

	var outcome SkillLevelUp
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		ok, err := tx.Wallets.Debit(ctx, profile.ID, xp)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientBalance
		}

		err = tx.Skills.Ensure(ctx, &schema.SkillProgress{
			ProfileID:  profile.ID,
			SkillSlug:  slug,
			RequiredXP: RequiredXP(0),
		})
		if err != nil {
			return err
		}

		for attempt := 0; attempt < maxSkillCASAttempts; attempt++ {
			sp, err := tx.Skills.Get(ctx, profile.ID, slug)
			if err != nil {
				return err
			}
			if sp == nil {
				return internalError("技能进度缺失", errSkillProgressMissing)
			}
			outcome = ApplySkillXP(sp.CurrentLevel, sp.CurrentXP, xp)
			sp.CurrentLevel = outcome.Level
			sp.CurrentXP = outcome.XP
			sp.RequiredXP = outcome.RequiredXP
			swapped, err := tx.Skills.CompareAndSwap(ctx, sp)
			if err != nil {
				return err
			}
			if swapped {
				return nil
			}
			slog.Debug("技能进度版本冲突，重试", "profile_id", profile.ID, "skill", slug, "attempt", attempt+1)
		}
		return &Error{Code: CodeInternal, Message: "Skill progress was updated concurrently, please retry"}
	})
	if err != nil {
		return nil, nil, asError("花费技能经验失败", err)
	}

	if outcome.LevelsGained() > 0 {
		slog.Info("技能升级", "profile_id", profile.ID, "skill", slug, "from", outcome.PreviousLevel, "to", outcome.Level)
	}
	publishProgress(s.publisher, profile.UserID, profile.ID, ActionSpendSkillXP, map[string]any{"skill_slug": slug, "new_level": outcome.Level})

	fresh, err := FetchProfileState(ctx, s.store, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	return fresh, &SpendSkillXPResult{
		SkillSlug:     slug,
		XPSpent:       xp,
		PreviousLevel: outcome.PreviousLevel,
		NewLevel:      outcome.Level,
		LevelsGained:  outcome.LevelsGained(),
		CurrentXP:     outcome.XP,
		RequiredXP:    outcome.RequiredXP,
	}, nil
}

// AwardActionXP 钱包入账是唯一的关键写入；健康消耗与流水失败只记日志
func (s *ProgressionService) AwardActionXP(ctx context.Context, state *ProfileState, in AwardActionXPInput) (*ProfileState, *AwardActionXPResult, error) {
	profile := state.Profile
	if in.XP <= 0 {
		return nil, nil, invalidInput("xp must be a positive integer")
	}
	category := strings.TrimSpace(in.Category)
	actionKey := strings.TrimSpace(in.ActionKey)
	activity := ParseActivityType(schema.GetString(in.Metadata, "activity_type"))
	if activity == "" {
		activity = ParseActivityType(actionKey)
	}
	if activity == "" {
		activity = ParseActivityType(category)
	}
	if activity == "" {
		activity = ActivityGeneral
	}

	// 关键阶段
	if err := s.store.Wallets.Credit(ctx, profile.ID, repository.WalletCredit{XP: in.XP}); err != nil {
		return nil, nil, internalError("行为经验入账失败", err)
	}

	// 审计阶段
	result := &AwardActionXPResult{XPAwarded: in.XP, ActivityType: string(activity), Health: profile.Health}
	if minutes, ok := schema.GetFloat(in.Metadata, "duration_minutes"); ok {
		if drain := HealthDrain(activity, minutes); drain > 0 {
			health, err := s.store.Profiles.AdjustHealth(ctx, profile.ID, -drain, 0, schema.MaxHealth)
			if err != nil {
				slog.Warn("更新健康值失败", "profile_id", profile.ID, "drain", drain, "error", err)
			} else {
				result.HealthDrain = drain
				result.Health = health
			}
		}
	}

	if profile.UserID == "" {
		slog.Warn("档案缺少 user_id，跳过经验流水", "profile_id", profile.ID)
	} else {
		meta := in.Metadata.Clone()
		meta["category"] = category
		meta["action_key"] = actionKey
		meta["health_drain"] = result.HealthDrain
		entry := &schema.ExperienceLedgerEntry{
			ProfileID:    profile.ID,
			UserID:       profile.UserID,
			ActivityType: string(activity),
			XPAmount:     in.XP,
			Metadata:     meta,
		}
		if err := s.store.Ledger.Insert(ctx, entry); err != nil {
			slog.Warn("写入经验流水失败", "profile_id", profile.ID, "activity", activity, "error", err)
		}
	}

	publishProgress(s.publisher, profile.UserID, profile.ID, ActionAwardActionXP, map[string]any{"xp": in.XP, "activity_type": string(activity)})

	fresh, err := FetchProfileState(ctx, s.store, profile.ID)
	if err != nil {
		return nil, nil, err
	}
	return fresh, result, nil
}

// spendAmount nil 取默认值，显式给出时必须为正
func spendAmount(v *int64, def int64) (int64, error) {
	if v == nil {
		return def, nil
	}
	if *v <= 0 {
		return 0, invalidInput("xp must be a positive integer")
	}
	return *v, nil
}

// NormalizeSkillSlug 统一技能 slug：小写，空白与下划线转连字符，只保留字母数字和连字符
func NormalizeSkillSlug(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ""
	}
	key = strings.NewReplacer(" ", "-", "_", "-").Replace(key)

	var b strings.Builder
	lastDash := false
	for _, r := range key {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		case r == '-' && !lastDash && b.Len() > 0:
			b.WriteRune(r)
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
