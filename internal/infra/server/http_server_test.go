package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Miraines/MoonyAndStarry/video-service/internal/infra/config"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func TestServe_GracefulShutdown(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	cfg := &config.Config{ShutdownTimeout: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, lis, cfg, handler, zap.NewNop()) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + lis.Addr().String())
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartHTTPServer_BadAddress(t *testing.T) {
	cfg := &config.Config{HTTPAddress: "256.0.0.1:bad"}
	err := StartHTTPServer(context.Background(), cfg, http.NotFoundHandler(), zap.NewNop())
	require.Error(t, err)
}

func TestServe_SiblingFailureStopsGroup(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return Serve(ctx, lis, &config.Config{ShutdownTimeout: time.Second}, http.NotFoundHandler(), zap.NewNop())
	})
	g.Go(func() error {
		return StartHTTPServer(ctx, &config.Config{HTTPAddress: "256.0.0.1:bad"}, http.NotFoundHandler(), zap.NewNop())
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("api listener kept running after the metrics listener failed")
	}
}
