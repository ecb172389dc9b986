package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/yuqie6/gigledger/internal/bootstrap"
	"github.com/yuqie6/gigledger/internal/dto"
)

const maxBodyBytes = 1 << 20

type Server struct {
	core     *bootstrap.Core
	ln       net.Listener
	srv      *http.Server
	addr     string
	serveErr chan error
}

type Options struct {
	ListenAddr string // e.g. "127.0.0.1:8787"
}

// Start 监听并在后台提供服务；ctx 结束时自动关闭
func Start(ctx context.Context, core *bootstrap.Core, opts Options) (*Server, error) {
	if core == nil {
		return nil, fmt.Errorf("core 不能为空")
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = core.Cfg.Server.Listen
	}
	if strings.TrimSpace(opts.ListenAddr) == "" {
		opts.ListenAddr = "127.0.0.1:0"
	}

	ln, err := net.Listen("tcp", opts.ListenAddr)
	if err != nil {
		return nil, err
	}

	readHeader := time.Duration(core.Cfg.Server.ReadHeaderTimeout) * time.Second
	if readHeader <= 0 {
		readHeader = 5 * time.Second
	}
	srv := &http.Server{
		Handler:           NewHandler(core),
		ReadHeaderTimeout: readHeader,
	}

	s := &Server{
		core:     core,
		ln:       ln,
		srv:      srv,
		addr:     ln.Addr().String(),
		serveErr: make(chan error, 1),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout())
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	go func() {
		defer close(s.serveErr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server 异常退出", "error", err)
			s.serveErr <- err
		}
	}()

	slog.Info("HTTP 已启动", "addr", s.addr)
	return s, nil
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Wait 阻塞到 ctx 结束或服务退出；正常关闭返回 nil，监听异常返回 Serve 的错误
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-s.serveErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server 退出: %w", err)
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *Server) shutdownTimeout() time.Duration {
	d := time.Duration(s.core.Cfg.Server.ShutdownTimeout) * time.Second
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// NewHandler 组装全部路由，测试直接使用
func NewHandler(core *bootstrap.Core) http.Handler {
	api := newAPI(core)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", api.wrapGET(api.handleHealth))
	mux.HandleFunc("/api/events", api.wrapGET(api.handleSSE))
	mux.HandleFunc("/functions/v1/progression", api.wrapPOST(api.handleProgression))
	mux.HandleFunc("/functions/v1/daily-activity-xp", api.wrapPOST(api.handleDailyActivity))

	return withCORS(core.Cfg.Server.AllowedOrigin, mux)
}

func (a *apiServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	userID, err := a.auth.userFromRequest(r, true)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "stream not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	sub := a.core.Hub.Subscribe(ctx, userID, 32)

	_, _ = io.WriteString(w, "event: ready\n")
	_, _ = io.WriteString(w, "data: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(a.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, "event: ping\n")
			_, _ = io.WriteString(w, "data: {}\n\n")
			flusher.Flush()
		case evt, ok := <-sub:
			if !ok {
				return
			}
			b, _ := json.Marshal(evt)
			_, _ = io.WriteString(w, "event: "+sanitizeSSEName(evt.Type)+"\n")
			_, _ = io.WriteString(w, "data: ")
			_, _ = w.Write(b)
			_, _ = io.WriteString(w, "\n\n")
			flusher.Flush()
		}
	}
}

func sanitizeSSEName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return "message"
	}
	n = strings.ReplaceAll(n, "\n", "")
	n = strings.ReplaceAll(n, "\r", "")
	return n
}

// withCORS 所有响应带上 CORS 头，预检直接 200
func withCORS(origin string, next http.Handler) http.Handler {
	if strings.TrimSpace(origin) == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.NewErrorResponse(msg))
}

// readBody 读取完整请求体，超过上限视为错误
func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	b, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxBodyBytes {
		return nil, fmt.Errorf("request body too large")
	}
	return b, nil
}
