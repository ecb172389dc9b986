package httpapi

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerWaitReportsListenerFailure(t *testing.T) {
	core := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := Start(ctx, core, Options{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 监听器被外部关闭，Serve 以非 ErrServerClosed 的错误退出
	require.NoError(t, srv.ln.Close())

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	err = srv.Wait(waitCtx)
	require.Error(t, err)
	assert.NoError(t, waitCtx.Err(), "Wait should return before its context expires")
}

func TestServerWaitReturnsNilOnGracefulShutdown(t *testing.T) {
	core := newTestCore(t)
	ctx, cancel := context.WithCancel(context.Background())

	srv, err := Start(ctx, core, Options{ListenAddr: "127.0.0.1:0"})
	require.NoError(t, err)

	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	assert.NoError(t, srv.Wait(waitCtx))
	assert.NoError(t, waitCtx.Err(), "Wait should return once the server has shut down")
}
