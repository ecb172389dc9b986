package service

import (
	"context"
	"strings"
	"time"

	"github.com/yuqie6/gigledger/internal/repository"
	"github.com/yuqie6/gigledger/internal/schema"
)

// PointAvailability 可用点数，每次读取时现算，不落库
type PointAvailability struct {
	AttributePointsAvailable int64 `json:"attribute_points_available"`
	SkillPointsAvailable     int64 `json:"skill_points_available"`
}

// CalcPointAvailability 由累计获得与已花费推导可用点数，结果不小于 0
func CalcPointAvailability(w *schema.XPWallet, a *schema.PlayerAttributes) PointAvailability {
	var earned, skill, spent int64
	if w != nil {
		earned = w.AttributePointsEarned
		skill = w.SkillPointsEarned
	}
	if a != nil {
		spent = a.AttributePointsSpent
	}
	return PointAvailability{
		AttributePointsAvailable: max(0, earned-spent),
		SkillPointsAvailable:     max(0, skill),
	}
}

// WalletView 钱包对外视图
// skill_xp_* 与 attribute_points_balance/lifetime 是旧客户端使用的兼容字段，由规范列派生。
type WalletView struct {
	ProfileID               string     `json:"profile_id"`
	XPBalance               int64      `json:"xp_balance"`
	LifetimeXP              int64      `json:"lifetime_xp"`
	XPSpent                 int64      `json:"xp_spent"`
	AttributePointsEarned   int64      `json:"attribute_points_earned"`
	SkillPointsEarned       int64      `json:"skill_points_earned"`
	SkillXPBalance          int64      `json:"skill_xp_balance"`
	SkillXPLifetime         int64      `json:"skill_xp_lifetime"`
	AttributePointsBalance  int64      `json:"attribute_points_balance"`
	AttributePointsLifetime int64      `json:"attribute_points_lifetime"`
	LastUpdatedAt           *time.Time `json:"last_updated_at"`
}

func newWalletView(profileID string, w *schema.XPWallet, avail PointAvailability) WalletView {
	v := WalletView{ProfileID: profileID, AttributePointsBalance: avail.AttributePointsAvailable}
	if w == nil {
		return v
	}
	v.XPBalance = w.XPBalance
	v.LifetimeXP = w.LifetimeXP
	v.XPSpent = w.XPSpent
	v.AttributePointsEarned = w.AttributePointsEarned
	v.SkillPointsEarned = w.SkillPointsEarned
	v.SkillXPBalance = w.XPBalance
	v.SkillXPLifetime = w.LifetimeXP
	v.AttributePointsLifetime = w.AttributePointsEarned
	if !w.LastUpdatedAt.IsZero() {
		t := w.LastUpdatedAt.UTC()
		v.LastUpdatedAt = &t
	}
	return v
}

// ProfileState 一次读取得到的档案快照
type ProfileState struct {
	Profile           *schema.Profile          `json:"profile"`
	Wallet            WalletView               `json:"wallet"`
	Attributes        *schema.PlayerAttributes `json:"attributes"`
	PointAvailability PointAvailability        `json:"point_availability"`
}

// FetchProfileState 读取档案、钱包、属性；钱包与属性缺失时按零值处理
func FetchProfileState(ctx context.Context, store *repository.Store, profileID string) (*ProfileState, error) {
	profile, err := store.Profiles.GetByID(ctx, profileID)
	if err != nil {
		return nil, internalError("读取档案失败", err)
	}
	if profile == nil {
		return nil, ErrNotFound
	}

	wallet, err := store.Wallets.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, internalError("读取钱包失败", err)
	}
	attrs, err := store.Attributes.GetByProfile(ctx, profileID)
	if err != nil {
		return nil, internalError("读取属性失败", err)
	}
	if attrs == nil {
		attrs = &schema.PlayerAttributes{ProfileID: profileID}
	}

	avail := CalcPointAvailability(wallet, attrs)
	return &ProfileState{
		Profile:           profile,
		Wallet:            newWalletView(profileID, wallet, avail),
		Attributes:        attrs,
		PointAvailability: avail,
	}, nil
}

// LoadActiveProfile 取用户最早创建的档案作为当前档案
func LoadActiveProfile(ctx context.Context, store *repository.Store, userID string) (*ProfileState, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthorized
	}
	profile, err := store.Profiles.GetFirstByUser(ctx, userID)
	if err != nil {
		return nil, internalError("查询当前档案失败", err)
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return FetchProfileState(ctx, store, profile.ID)
}
