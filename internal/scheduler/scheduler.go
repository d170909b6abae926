// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"

	"github.com/staranto/leobotgo/internal/store"
)

// DefaultInterval is the auto flush period when none is configured.
const DefaultInterval = 5 * time.Minute

var (
	ErrAlreadyRunning = errors.New("auto flush loop is already running")
	ErrNotRunning     = errors.New("auto flush loop is not running")
)

// Flusher is what the scheduler drives on every tick.
type Flusher interface {
	Flush(ctx context.Context) store.FlushReport
}

// Scheduler runs Flush on a fixed interval in a background goroutine. It is
// either Running or Stopped; Start and Stop report the state they found when
// it was already the requested one.
type Scheduler struct {
	name     string
	interval time.Duration
	flusher  Flusher

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	runs atomic.Int64
}

// New returns a stopped scheduler. A non-positive interval selects
// DefaultInterval.
func New(name string, interval time.Duration, flusher Flusher) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{name: name, interval: interval, flusher: flusher}
}

func (s *Scheduler) Interval() time.Duration { return s.interval }

// Runs counts completed scheduled flushes.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Start moves Stopped -> Running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done
	go s.loop(ctx, done)

	log.WithFields(log.Fields{"store": s.name, "interval": s.interval}).Debug("auto flush started")
	return nil
}

// Stop moves Running -> Stopped. It prevents further ticks and waits for a
// flush already in progress to finish; it never interrupts one.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return ErrNotRunning
	}

	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil

	log.WithField("store", s.name).Debug("auto flush stopped")
	return nil
}

// Pause stops the scheduler if it is running and reports whether it was.
func (s *Scheduler) Pause() bool {
	return s.Stop() == nil
}

// Resume restarts the scheduler when wasRunning is set.
func (s *Scheduler) Resume(wasRunning bool) error {
	if !wasRunning {
		return nil
	}
	return s.Start()
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			// The flush itself must not be cut short by Stop.
			report := s.flusher.Flush(context.WithoutCancel(ctx))
			s.runs.Add(1)

			entry := log.WithFields(log.Fields{
				"store":     s.name,
				"succeeded": len(report.Succeeded),
				"failed":    len(report.Failed),
			})
			if report.OK() {
				entry.Debug("auto flush")
			} else {
				entry.WithError(report.Err()).Warn("auto flush had failures")
			}
		}
	}
}
