package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/launchpad/internal/config"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/launchpad"
	"github.com/rovshanmuradov/launchpad/internal/testutil"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

func TestShutdownClosesInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func() error {
		return func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}
	sh.AddFunc("ledger", record("ledger"))
	sh.AddFunc("store", record("store"))
	sh.AddFunc("bus", record("bus"))

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"bus", "store", "ledger"}, order)

	// второй вызов ничего не закрывает
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdownJoinsErrorsAndTimesOut(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t), 50*time.Millisecond)
	boom := errors.New("boom")
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })

	sh.AddFunc("stuck", func() error { <-block; return nil })
	sh.AddFunc("broken", func() error { return boom })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "stuck: shutdown timeout")
}

func TestRunnerServesAndStops(t *testing.T) {
	t.Setenv("LAUNCHPAD_PLATFORM_OWNER", testutil.NewAddress().String())
	t.Setenv("LAUNCHPAD_ORACLE_STATIC_RATE", "120")
	t.Setenv("LAUNCHPAD_HTTP_ADDR", "127.0.0.1:0")
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	r := NewRunner(cfg, &logger.Logger{Logger: zaptest.NewLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Initialize(ctx))

	info, err := r.Service().CreateInstantLaunch(ctx, testutil.NewAddress(), launchpad.CreateInstantLaunchRequest{
		Name:   "Runner",
		Symbol: "RUN",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.KindInstantLaunch, info.Kind)
	assert.True(t, r.Service().DisplayRate(ctx).Equal(decimal.NewFromInt(120)))

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("runner did not stop")
	}
}
