package sync

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edostavka/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
}

func TestPollerRunsImmediatelyAndOnTick(t *testing.T) {
	var calls atomic.Int32
	poller, err := NewPoller("test", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestPollerSurvivesFailures(t *testing.T) {
	var calls atomic.Int32
	poller, err := NewPoller("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return assert.AnError
	}, testLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestNewPollerValidation(t *testing.T) {
	_, err := NewPoller("", time.Second, func(ctx context.Context) error { return nil }, testLogger(), nil)
	assert.Error(t, err)

	_, err = NewPoller("x", 0, func(ctx context.Context) error { return nil }, testLogger(), nil)
	assert.Error(t, err)

	_, err = NewPoller("x", time.Second, nil, testLogger(), nil)
	assert.Error(t, err)
}

func TestSeqGuardRejectsStaleCommit(t *testing.T) {
	var guard SeqGuard

	first := guard.Begin()
	second := guard.Begin()

	assert.True(t, guard.Commit(second))
	assert.False(t, guard.Commit(first), "older poll must not overwrite a newer result")
	assert.True(t, guard.Commit(guard.Begin()))
}

func TestDebouncerCoalescesTriggers(t *testing.T) {
	var calls atomic.Int32
	debouncer := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })
	defer debouncer.Stop()

	for i := 0; i < 5; i++ {
		debouncer.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	var calls atomic.Int32
	debouncer := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

	debouncer.Trigger()
	debouncer.Stop()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
