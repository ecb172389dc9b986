package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yuqie6/gigledger/internal/bootstrap"
	"github.com/yuqie6/gigledger/internal/dto"
	"github.com/yuqie6/gigledger/internal/pkg/buildinfo"
	"github.com/yuqie6/gigledger/internal/service"
)

type apiServer struct {
	core         *bootstrap.Core
	auth         *authenticator
	pingInterval time.Duration
}

func newAPI(core *bootstrap.Core) *apiServer {
	return &apiServer{
		core:         core,
		auth:         newAuthenticator(core.Cfg.Hosting),
		pingInterval: 15 * time.Second,
	}
}

func (a *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	version := a.core.Cfg.App.Version
	if version == "" {
		version = buildinfo.Version
	}
	writeJSON(w, http.StatusOK, dto.HealthDTO{
		OK:       true,
		Name:     a.core.Cfg.App.Name,
		Version:  version,
		SafeMode: a.core.DB != nil && a.core.DB.SafeMode,
	})
}

// handleProgression 单一入口，按 body.action 分发；任何错误都是 400 + 错误消息
func (a *apiServer) handleProgression(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.PublicMessage(service.ErrInvalidInput))
		return
	}

	var head struct {
		Action string `json:"action"`
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &head); err != nil {
			writeError(w, http.StatusBadRequest, service.PublicMessage(service.ErrInvalidInput))
			return
		}
	}

	ctx, span := otel.Tracer("gigledger/httpapi").Start(r.Context(), "progression",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	span.SetAttributes(attribute.String("progression.action", head.Action))

	userID, err := a.auth.userFromRequest(r, false)
	if err != nil {
		span.SetStatus(codes.Error, "unauthorized")
		writeError(w, http.StatusBadRequest, service.PublicMessage(err))
		return
	}

	if err := a.core.RequireWritable(); err != nil && head.Action != service.ActionGetState {
		slog.Warn("安全模式拒绝写操作", "action", head.Action, "error", err)
		writeError(w, http.StatusBadRequest, service.PublicMessage(service.ErrInternal))
		return
	}

	resp, err := a.core.Services.Dispatcher.Dispatch(ctx, userID, head.Action, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(service.CodeOf(err)))
		writeError(w, http.StatusBadRequest, service.PublicMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewProgressionResponse(resp))
}

// handleDailyActivity 由调度方携带 service role key 调用
func (a *apiServer) handleDailyActivity(w http.ResponseWriter, r *http.Request) {
	if !a.auth.isServiceRole(r) {
		writeError(w, http.StatusUnauthorized, service.ErrUnauthorized.Message)
		return
	}
	if err := a.core.RequireWritable(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	date := strings.TrimSpace(r.URL.Query().Get("date"))
	res, err := a.core.Services.Aggregator.Run(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusBadRequest, service.PublicMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, dto.NewDailyActivityResponse(res))
}

func (a *apiServer) wrapGET(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}

func (a *apiServer) wrapPOST(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		fn(w, r)
	}
}
