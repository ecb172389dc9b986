package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/yuqie6/gigledger/internal/repository"
)

// 支持的 action
const (
	ActionGetState            = "get_state"
	ActionClaimDailyXP        = "claim_daily_xp"
	ActionSpendAttributeXP    = "spend_attribute_xp"
	ActionSpendSkillXP        = "spend_skill_xp"
	ActionAwardActionXP       = "award_action_xp"
	ActionAdminAwardSpecialXP = "admin_award_special_xp"
	ActionAdminAdjustMomentum = "admin_adjust_momentum"
	ActionAdminSetDailyXP     = "admin_set_daily_xp"
)

// ActionResponse 一次 action 的结果：最新快照加上 action 自己的结果
type ActionResponse struct {
	Action string        `json:"action"`
	State  *ProfileState `json:"-"`
	Result any           `json:"result"`
}

// Dispatcher 解析 action 并路由到对应处理器
type Dispatcher struct {
	store       *repository.Store
	progression *ProgressionService
	admin       *AdminService
}

// NewDispatcher 创建分发器
func NewDispatcher(store *repository.Store, progression *ProgressionService, admin *AdminService) *Dispatcher {
	return &Dispatcher{store: store, progression: progression, admin: admin}
}

// Dispatch body 是完整请求体 {action, ...params}，参数按 action 解码
func (d *Dispatcher) Dispatch(ctx context.Context, userID, action string, body []byte) (*ActionResponse, error) {
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, invalidInput("action is required")
	}
	if !isKnownAction(action) {
		return nil, invalidInput("Unknown action: %s", action)
	}

	state, err := LoadActiveProfile(ctx, d.store, userID)
	if err != nil {
		return nil, err
	}

	resp := &ActionResponse{Action: action, State: state}
	switch action {
	case ActionGetState:
		return resp, nil

	case ActionClaimDailyXP:
		var in ClaimDailyXPInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		st, res, herr := d.progression.ClaimDailyXP(ctx, state, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.State, resp.Result = st, res

	case ActionSpendAttributeXP:
		var in SpendAttributeXPInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		st, res, herr := d.progression.SpendAttributeXP(ctx, state, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.State, resp.Result = st, res

	case ActionSpendSkillXP:
		var in SpendSkillXPInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		st, res, herr := d.progression.SpendSkillXP(ctx, state, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.State, resp.Result = st, res

	case ActionAwardActionXP:
		var in AwardActionXPInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		st, res, herr := d.progression.AwardActionXP(ctx, state, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.State, resp.Result = st, res

	case ActionAdminAwardSpecialXP:
		var in AdminAwardSpecialXPInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		res, herr := d.admin.AwardSpecialXP(ctx, userID, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.Result = res

	case ActionAdminAdjustMomentum:
		var in AdminAdjustMomentumInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		res, herr := d.admin.AdjustMomentum(ctx, userID, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.Result = res

	case ActionAdminSetDailyXP:
		var in AdminSetDailyXPInput
		if err := decodeParams(body, &in); err != nil {
			return nil, err
		}
		res, herr := d.admin.SetDailyXP(ctx, userID, in)
		if herr != nil {
			return nil, d.fail(action, userID, herr)
		}
		resp.Result = res
	}

	// 管理员操作可能改到调用者自己的档案，统一重读一次
	if strings.HasPrefix(action, "admin_") {
		fresh, ferr := FetchProfileState(ctx, d.store, state.Profile.ID)
		if ferr != nil {
			return nil, ferr
		}
		resp.State = fresh
	}
	return resp, nil
}

func isKnownAction(action string) bool {
	switch action {
	case ActionGetState, ActionClaimDailyXP, ActionSpendAttributeXP, ActionSpendSkillXP, ActionAwardActionXP,
		ActionAdminAwardSpecialXP, ActionAdminAdjustMomentum, ActionAdminSetDailyXP:
		return true
	}
	return false
}

// decodeParams 类型不符的参数统一报 InvalidInput
func decodeParams(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalidInput("Invalid parameters: %v", err)
	}
	return nil
}

func (d *Dispatcher) fail(action, userID string, err error) error {
	if CodeOf(err) == CodeInternal {
		slog.Error("action 执行失败", "action", action, "user_id", userID, "error", err)
	}
	return err
}
