// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/staranto/leobotgo/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingFlusher struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
	finished atomic.Int32
}

func (f *countingFlusher) Flush(ctx context.Context) store.FlushReport {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if ctx.Err() == nil {
		f.finished.Add(1)
	}
	return store.FlushReport{}
}

func TestStateMachine(t *testing.T) {
	s := New("test", time.Hour, &countingFlusher{})
	assert.False(t, s.Running())

	require.NoError(t, s.Start())
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.Start(), ErrAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.False(t, s.Running())
	assert.ErrorIs(t, s.Stop(), ErrNotRunning)

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestDefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, New("test", 0, &countingFlusher{}).Interval())
	assert.Equal(t, 5*time.Minute, DefaultInterval)
}

func TestTicks(t *testing.T) {
	f := &countingFlusher{}
	s := New("test", 5*time.Millisecond, f)
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return f.calls.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	after := f.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, f.calls.Load(), "no ticks after stop")
	assert.GreaterOrEqual(t, s.Runs(), int64(3))
	assert.False(t, f.overlap.Load())
}

func TestStop_WaitsForInFlightFlush(t *testing.T) {
	f := &countingFlusher{delay: 50 * time.Millisecond}
	s := New("test", time.Millisecond, f)
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return f.inFlight.Load() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Equal(t, int32(0), f.inFlight.Load())
	assert.Equal(t, f.calls.Load(), f.finished.Load(), "in-flight flush must not see cancellation")
}

func TestPauseResume(t *testing.T) {
	s := New("test", time.Hour, &countingFlusher{})

	was := s.Pause()
	assert.False(t, was)
	require.NoError(t, s.Resume(was))
	assert.False(t, s.Running())

	require.NoError(t, s.Start())
	was = s.Pause()
	assert.True(t, was)
	assert.False(t, s.Running())
	require.NoError(t, s.Resume(was))
	assert.True(t, s.Running())
	require.NoError(t, s.Stop())
}
