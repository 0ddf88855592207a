package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	notifStore "correspondence/internal/notification/store"
	"correspondence/internal/platform/config"
	"correspondence/internal/platform/logger"
)

func memoryConfig() config.Config {
	return config.Config{
		Server:   config.Server{Addr: ":0", RequestTimeout: time.Second, ShutdownTimeout: time.Second},
		Kafka:    config.Kafka{Topic: "procedure-events"},
		Routing:  config.Routing{AutoRejectDays: 5},
		Notifier: config.Notifier{Ledger: "memory"},
		Outbox:   config.Outbox{Schedule: "@every 1s", PurgeAt: "@hourly", Retention: time.Hour, BatchSize: 10},
	}
}

func TestNewInMemory(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logger.NewWithWriter(io.Discard, "error"))
	require.NoError(t, err)
	defer a.Close()

	for _, path := range []string{"/health", "/metrics"} {
		rr := httptest.NewRecorder()
		a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr := httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/inbox", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	n, err := a.Relay.Flush(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedgerSelection(t *testing.T) {
	log := logger.NewWithWriter(io.Discard, "error")

	t.Run("postgres without a database falls back to memory", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Notifier.Ledger = "postgres"
		a := &App{cfg: cfg, logger: log}
		ledger, err := a.buildLedger(context.Background(), nil)
		require.NoError(t, err)
		assert.IsType(t, &notifStore.InMemory{}, ledger)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := memoryConfig()
		cfg.Notifier.Ledger = "redis"
		cfg.Redis = config.RedisConfig{URL: "redis://" + mr.Addr()}
		a := &App{cfg: cfg, logger: log}
		defer a.Close()
		ledger, err := a.buildLedger(context.Background(), nil)
		require.NoError(t, err)
		assert.IsType(t, &notifStore.RedisStore{}, ledger)
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), logger.NewWithWriter(io.Discard, "error"))
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
}
