package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unevent/unevent-api/config"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestWorkers(t *testing.T) {
	var none *ServiceOrchestrationConfig
	assert.Nil(t, none.workers(quietLogger(), time.Second))
	assert.Nil(t, (&ServiceOrchestrationConfig{}).workers(quietLogger(), time.Second))

	all := (&ServiceOrchestrationConfig{Config: &config.AppConfig{}}).workers(quietLogger(), time.Second)
	require.Len(t, all, len(config.ValidServiceModes()))

	picked := selectWorkers(all, map[config.ServiceMode]bool{config.ServiceModeReaper: true})
	require.Len(t, picked, 1)
	assert.Equal(t, "reaper", picked[0].name)
	assert.Empty(t, selectWorkers(all, nil))
}

func TestSupervise_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var stopped atomic.Int32
	w := worker{name: "w", run: func(ctx context.Context) error {
		defer stopped.Add(1)
		return blockUntilDone(ctx)
	}}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	require.NoError(t, supervise(ctx, quietLogger(), time.Second, []worker{w, w}))
	assert.Equal(t, int32(2), stopped.Load())
}

func TestSupervise_FailureStopsOthers(t *testing.T) {
	boom := errors.New("boom")
	var stopped atomic.Bool
	workers := []worker{
		{name: "broken", run: func(context.Context) error { return boom }},
		{name: "healthy", run: func(ctx context.Context) error {
			defer stopped.Store(true)
			return blockUntilDone(ctx)
		}},
	}

	err := supervise(context.Background(), quietLogger(), time.Second, workers)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, stopped.Load())
}

func TestSupervise_GraceExpires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	release := make(chan struct{})
	defer close(release)

	stuck := worker{name: "stuck", run: func(context.Context) error {
		<-release
		return nil
	}}
	err := supervise(ctx, quietLogger(), 20*time.Millisecond, []worker{stuck})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "still running")
}

func TestSupervise_NoWorkers(t *testing.T) {
	assert.NoError(t, supervise(context.Background(), quietLogger(), time.Second, nil))
}

func TestServeHTTP(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serveHTTP(ctx, srv, quietLogger(), time.Second) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("serveHTTP did not return")
	}
}

func TestServeHTTP_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "256.0.0.1:bad", Handler: http.NotFoundHandler()}
	err := serveHTTP(context.Background(), srv, quietLogger(), time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestRunServicesWithShutdown_Validates(t *testing.T) {
	ctx := context.Background()
	require.Error(t, RunServicesWithShutdown(ctx, nil))
	require.Error(t, RunServicesWithShutdown(ctx, &ServiceOrchestrationConfig{}))
	require.Error(t, RunServicesWithShutdown(ctx, &ServiceOrchestrationConfig{Config: &config.AppConfig{Services: "bogus"}}))
}

func TestRunServicesWithShutdown_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := &ServiceOrchestrationConfig{
		Config: &config.AppConfig{Services: "http", HTTP: config.HTTPConfig{Addr: "127.0.0.1:0"}},
		Logger: quietLogger(),
	}
	assert.NoError(t, RunServicesWithShutdown(ctx, cfg))
}
