package dto

// 注意：本包承载对外 HTTP 契约；持久化 schema 在 internal/schema，业务逻辑在 internal/service。

import (
	"github.com/yuqie6/gigledger/internal/schema"
	"github.com/yuqie6/gigledger/internal/service"
)

// ProgressionResponse progression 端点的成功响应
type ProgressionResponse struct {
	Success           bool                      `json:"success"`
	Action            string                    `json:"action"`
	Profile           *schema.Profile           `json:"profile"`
	Wallet            service.WalletView        `json:"wallet"`
	Attributes        *schema.PlayerAttributes  `json:"attributes"`
	PointAvailability service.PointAvailability `json:"point_availability"`
	Result            any                       `json:"result,omitempty"`
}

// NewProgressionResponse 把动作结果展开为响应体
func NewProgressionResponse(resp *service.ActionResponse) ProgressionResponse {
	out := ProgressionResponse{Success: true}
	if resp == nil {
		return out
	}
	out.Action = resp.Action
	out.Result = resp.Result
	if st := resp.State; st != nil {
		out.Profile = st.Profile
		out.Wallet = st.Wallet
		out.Attributes = st.Attributes
		out.PointAvailability = st.PointAvailability
	}
	return out
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func NewErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}

// DailyActivityResponse 日结聚合结果
type DailyActivityResponse struct {
	Success   bool   `json:"success"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Date      string `json:"date"`
}

func NewDailyActivityResponse(r *service.AggregateResult) DailyActivityResponse {
	if r == nil {
		return DailyActivityResponse{Success: true}
	}
	return DailyActivityResponse{
		Success:   true,
		Processed: r.Processed,
		Skipped:   r.Skipped,
		Failed:    r.Failed,
		Date:      r.Date,
	}
}

type HealthDTO struct {
	OK       bool   `json:"ok"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	SafeMode bool   `json:"safe_mode,omitempty"`
}
