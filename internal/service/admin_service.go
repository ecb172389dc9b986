package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/schema"
)

// AdminTargets 目标档案：显式列表或全部档案
type AdminTargets struct {
	ProfileIDs []string `json:"profile_ids"`
	ApplyToAll bool     `json:"apply_to_all"`
}

// AdminAwardSpecialXPInput 管理员发放特殊经验
type AdminAwardSpecialXPInput struct {
	AdminTargets
	XP       int64          `json:"xp"`
	Reason   string         `json:"reason"`
	Metadata schema.JSONMap `json:"metadata"`
}

// AdminAwardSpecialXPResult 发放结果；ProfilesUpdated 以钱包入账成功为准
type AdminAwardSpecialXPResult struct {
	ProfilesUpdated  int   `json:"profiles_updated"`
	ProfilesTargeted int   `json:"profiles_targeted"`
	XPAmount         int64 `json:"xp_amount"`
}

// AdminAdjustMomentumInput 管理员调整势头
type AdminAdjustMomentumInput struct {
	AdminTargets
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
}

// AdminAdjustMomentumResult 调整结果
type AdminAdjustMomentumResult struct {
	ProfilesUpdated  int `json:"profiles_updated"`
	ProfilesTargeted int `json:"profiles_targeted"`
	Amount           int `json:"amount"`
}

// AdminSetDailyXPInput 修改签到配置；未给出的字段保持不变
type AdminSetDailyXPInput struct {
	NewPlayerAmount *int64 `json:"new_player_amount"`
	VeteranAmount   *int64 `json:"veteran_amount"`
	NewPlayerDays   *int   `json:"new_player_days"`
}

// AdminService 管理员操作，每个入口先校验 admin 角色
type AdminService struct {
	store     *repository.Store
	publisher Publisher
}

// NewAdminService 创建管理服务
func NewAdminService(store *repository.Store, publisher Publisher) *AdminService {
	return &AdminService{store: store, publisher: publisher}
}

// RequireAdmin 非管理员返回 Unauthorized
func (s *AdminService) RequireAdmin(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthorized
	}
	ok, err := s.store.Roles.HasRole(ctx, userID, schema.RoleAdmin)
	if err != nil {
		return internalError("校验管理员角色失败", err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// AwardSpecialXP 逐个档案独立入账，单个失败不影响其余
func (s *AdminService) AwardSpecialXP(ctx context.Context, callerUserID string, in AdminAwardSpecialXPInput) (*AdminAwardSpecialXPResult, error) {
	if err := s.RequireAdmin(ctx, callerUserID); err != nil {
		return nil, err
	}
	if in.XP <= 0 {
		return nil, invalidInput("xp must be a positive integer")
	}
	reason := strings.TrimSpace(in.Reason)
	profiles, targeted, err := s.resolveTargets(ctx, in.AdminTargets)
	if err != nil {
		return nil, err
	}

	result := &AdminAwardSpecialXPResult{ProfilesTargeted: targeted, XPAmount: in.XP}
	for i := range profiles {
		p := &profiles[i]

		// 关键阶段
		if err := s.store.Wallets.Credit(ctx, p.ID, repository.WalletCredit{XP: in.XP}); err != nil {
			slog.Error("管理员发放经验失败", "profile_id", p.ID, "error", err)
			continue
		}
		result.ProfilesUpdated++

		// 审计阶段
		if p.UserID == "" {
			slog.Warn("档案缺少 user_id，跳过经验流水", "profile_id", p.ID)
			continue
		}
		meta := in.Metadata.Clone()
		meta["reason"] = reason
		meta["granted_by"] = callerUserID
		err := s.store.Ledger.Insert(ctx, &schema.ExperienceLedgerEntry{
			ProfileID:    p.ID,
			UserID:       p.UserID,
			ActivityType: string(ActivityAdminGrant),
			XPAmount:     in.XP,
			Metadata:     meta,
		})
		if err != nil {
			slog.Warn("写入管理员发放流水失败", "profile_id", p.ID, "error", err)
		}
		publishProgress(s.publisher, p.UserID, p.ID, ActionAdminAwardSpecialXP, map[string]any{"xp": in.XP})
	}

	slog.Info("管理员发放经验完成", "granted_by", callerUserID, "updated", result.ProfilesUpdated, "targeted", result.ProfilesTargeted, "xp", in.XP)
	return result, nil
}

// AdjustMomentum 势头夹紧在 [-100, 100]
func (s *AdminService) AdjustMomentum(ctx context.Context, callerUserID string, in AdminAdjustMomentumInput) (*AdminAdjustMomentumResult, error) {
	if err := s.RequireAdmin(ctx, callerUserID); err != nil {
		return nil, err
	}
	if in.Amount == 0 {
		return nil, invalidInput("amount must be a non-zero integer")
	}
	reason := strings.TrimSpace(in.Reason)
	profiles, targeted, err := s.resolveTargets(ctx, in.AdminTargets)
	if err != nil {
		return nil, err
	}

	result := &AdminAdjustMomentumResult{ProfilesTargeted: targeted, Amount: in.Amount}
	for i := range profiles {
		p := &profiles[i]
		momentum, err := s.store.Profiles.AdjustMomentum(ctx, p.ID, in.Amount, schema.MinMomentum, schema.MaxMomentum)
		if err != nil {
			slog.Error("调整势头失败", "profile_id", p.ID, "error", err)
			continue
		}
		result.ProfilesUpdated++

		if p.UserID == "" {
			slog.Warn("档案缺少 user_id，跳过势头流水", "profile_id", p.ID)
			continue
		}
		err = s.store.Ledger.Insert(ctx, &schema.ExperienceLedgerEntry{
			ProfileID:    p.ID,
			UserID:       p.UserID,
			ActivityType: string(ActivityAdminMomentum),
			XPAmount:     0,
			Metadata: schema.JSONMap{
				"reason":         reason,
				"granted_by":     callerUserID,
				"momentum_delta": in.Amount,
				"momentum":       momentum,
			},
		})
		if err != nil {
			slog.Warn("写入势头流水失败", "profile_id", p.ID, "error", err)
		}
		publishProgress(s.publisher, p.UserID, p.ID, ActionAdminAdjustMomentum, map[string]any{"momentum": momentum})
	}
	return result, nil
}

// SetDailyXP 合并到当前配置后整体写回
func (s *AdminService) SetDailyXP(ctx context.Context, callerUserID string, in AdminSetDailyXPInput) (*StipendConfig, error) {
	if err := s.RequireAdmin(ctx, callerUserID); err != nil {
		return nil, err
	}
	if in.NewPlayerAmount == nil && in.VeteranAmount == nil && in.NewPlayerDays == nil {
		return nil, invalidInput("at least one of new_player_amount, veteran_amount, new_player_days is required")
	}

	cfg, err := loadStipendConfig(ctx, s.store)
	if err != nil {
		return nil, internalError("读取签到配置失败", err)
	}
	if in.NewPlayerAmount != nil {
		if *in.NewPlayerAmount <= 0 {
			return nil, invalidInput("new_player_amount must be positive")
		}
		cfg.NewPlayerAmount = *in.NewPlayerAmount
	}
	if in.VeteranAmount != nil {
		if *in.VeteranAmount <= 0 {
			return nil, invalidInput("veteran_amount must be positive")
		}
		cfg.VeteranAmount = *in.VeteranAmount
	}
	if in.NewPlayerDays != nil {
		if *in.NewPlayerDays <= 0 {
			return nil, invalidInput("new_player_days must be positive")
		}
		cfg.NewPlayerDays = *in.NewPlayerDays
	}

	if err := s.store.Settings.Put(ctx, schema.SettingDailyXPStipend, cfg.toJSONMap(), callerUserID); err != nil {
		return nil, internalError("保存签到配置失败", err)
	}
	slog.Info("签到配置已更新", "updated_by", callerUserID, "new_player_amount", cfg.NewPlayerAmount, "veteran_amount", cfg.VeteranAmount, "new_player_days", cfg.NewPlayerDays)
	return &cfg, nil
}

// resolveTargets 返回存在的档案与目标数量；显式列表去重，不存在的 id 只记日志
func (s *AdminService) resolveTargets(ctx context.Context, t AdminTargets) ([]schema.Profile, int, error) {
	if t.ApplyToAll {
		profiles, err := s.store.Profiles.ListAll(ctx)
		if err != nil {
			return nil, 0, internalError("查询全部档案失败", err)
		}
		return profiles, len(profiles), nil
	}

	seen := make(map[string]struct{}, len(t.ProfileIDs))
	ids := make([]string, 0, len(t.ProfileIDs))
	for _, id := range t.ProfileIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, 0, invalidInput("profile_ids or apply_to_all is required")
	}

	profiles, err := s.store.Profiles.GetByIDs(ctx, ids)
	if err != nil {
		return nil, 0, internalError("查询目标档案失败", err)
	}
	if len(profiles) < len(ids) {
		found := make(map[string]struct{}, len(profiles))
		for _, p := range profiles {
			found[p.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := found[id]; !ok {
				slog.Warn("目标档案不存在", "profile_id", id)
			}
		}
	}

	// 保持请求中的顺序
	byID := make(map[string]schema.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	ordered := make([]schema.Profile, 0, len(profiles))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return ordered, len(ids), nil
}
