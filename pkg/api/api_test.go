package api

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/pushstore/pkg/metrics"
	"github.com/marmos91/pushstore/pkg/service"
)

func TestAPIConfigDefaults(t *testing.T) {
	t.Parallel()

	var cfg APIConfig
	assert.True(t, cfg.IsEnabled())

	cfg.ApplyDefaults()
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)

	disabled := false
	cfg = APIConfig{Enabled: &disabled, Port: 8081}
	cfg.ApplyDefaults()
	assert.False(t, cfg.IsEnabled())
	assert.Equal(t, 8081, cfg.Port)
}

func TestRouter(t *testing.T) {
	metrics.Reset()
	t.Cleanup(metrics.Reset)

	c := service.NewContainer(nil)
	srv := httptest.NewServer(NewRouter(c))
	t.Cleanup(srv.Close)

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/health/ready", http.StatusServiceUnavailable},
		{"/services", http.StatusOK},
		{"/services/simplepush.datastore.default", http.StatusNotFound},
		{"/metrics", http.StatusNotFound},
		{"/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Get(srv.URL + tt.path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, tt.want, resp.StatusCode, tt.path)
	}
}

func TestRouterServesMetricsWhenEnabled(t *testing.T) {
	metrics.Reset()
	metrics.InitRegistry()
	t.Cleanup(metrics.Reset)

	srv := httptest.NewServer(NewRouter(service.NewContainer(nil)))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestServerLifecycle(t *testing.T) {
	t.Parallel()

	srv := NewServer(APIConfig{Port: freePort(t)}, service.NewContainer(nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", srv.Port()))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	assert.NoError(t, srv.Stop(context.Background()), "second stop is a no-op")
}

func TestServerListenError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	port := ln.Addr().(*net.TCPAddr).Port
	err = NewServer(APIConfig{Port: port}, nil).Start(t.Context())
	assert.ErrorContains(t, err, "failed to listen")
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
