// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	diff "github.com/yudai/gojsondiff"
	"github.com/yudai/gojsondiff/formatter"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
	"github.com/staranto/leobotgo/internal/scheduler"
	"github.com/staranto/leobotgo/internal/store"
)

// ErrNotCached is returned by Diff when the record is not loaded.
var ErrNotCached = errors.New("record is not cached")

// Admin carries out operator requests against one store and its scheduler.
// Every pass that touches the whole cache pauses the periodic flush for its
// duration so the two never overlap.
type Admin struct {
	store *store.Store
	sched *scheduler.Scheduler
}

func New(st *store.Store, sched *scheduler.Scheduler) *Admin {
	return &Admin{store: st, sched: sched}
}

func (a *Admin) Store() *store.Store { return a.store }

func (a *Admin) Scheduler() *scheduler.Scheduler { return a.sched }

// paused runs fn with the scheduler stopped, restarting it afterwards if it
// had been running.
func (a *Admin) paused(fn func()) error {
	was := a.sched.Pause()
	fn()
	if err := a.sched.Resume(was); err != nil {
		return fmt.Errorf("failed to resume auto flush: %w", err)
	}
	return nil
}

// ManualFlush flushes the whole store now.
func (a *Admin) ManualFlush(ctx context.Context) (store.FlushReport, error) {
	var report store.FlushReport
	err := a.paused(func() {
		report = a.store.Flush(ctx)
	})
	log.WithField("kind", a.store.Kind().Name).Info(report.String())
	return report, err
}

// ReloadAll re-syncs every cached record with the backend.
func (a *Admin) ReloadAll(ctx context.Context) (store.ReloadReport, error) {
	var report store.ReloadReport
	err := a.paused(func() {
		report = a.store.ReloadAll(ctx)
	})
	return report, err
}

// ClearCache empties the cache, flushing it first when flushFirst is set.
func (a *Admin) ClearCache(ctx context.Context, flushFirst bool) (store.FlushReport, error) {
	var (
		report   store.FlushReport
		clearErr error
	)
	err := a.paused(func() {
		report, clearErr = a.store.ClearCache(ctx, flushFirst)
	})
	return report, errors.Join(clearErr, err)
}

// SetAutoFlush starts or stops the periodic flush and returns the operator
// message. Asking for the state it is already in yields the scheduler's
// sentinel error along with a message saying so.
func (a *Admin) SetAutoFlush(enabled bool) (string, error) {
	if enabled {
		if err := a.sched.Start(); err != nil {
			return "Auto flush loop is already running.", err
		}
		return "Auto flush loop has been started.", nil
	}
	if err := a.sched.Stop(); err != nil {
		return "Auto flush loop is not running.", err
	}
	return "Auto flush loop has been cancelled.", nil
}

// Diff renders how the cached record differs from what is stored. An empty
// string means they match. A record with nothing stored diffs against {}.
func (a *Admin) Diff(ctx context.Context, scope, entity string) (string, error) {
	ref, err := a.store.Ref(scope, entity)
	if err != nil {
		return "", err
	}
	cached, ok := a.store.Snapshot(scope, entity)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotCached, ref)
	}

	stored, err := a.store.Backend().Read(ctx, ref)
	if errors.Is(err, backend.ErrNotFound) {
		stored = record.New()
	} else if err != nil {
		return "", err
	}

	left, right := stored.Map(), cached.Map()
	d := diff.New().CompareObjects(left, right)
	if !d.Modified() {
		return "", nil
	}

	f := formatter.NewAsciiFormatter(left, formatter.AsciiFormatterConfig{
		ShowArrayIndex: true,
	})
	return f.Format(d)
}

// Status classifies a cached record against the backend.
type Status string

const (
	StatusClean    Status = "clean"
	StatusModified Status = "modified"
	StatusNew      Status = "new"
	StatusError    Status = "error"
)

// EntryStatus is one row of Pending.
type EntryStatus struct {
	Ref    backend.Ref
	Status Status
	Fields int
	Err    error
}

// Pending lists every cached record with whether it matches the backend.
func (a *Admin) Pending(ctx context.Context) []EntryStatus {
	refs := a.store.Refs()
	out := make([]EntryStatus, 0, len(refs))
	for _, ref := range refs {
		es := EntryStatus{Ref: ref}
		cached, ok := a.store.Snapshot(ref.Scope, ref.Entity)
		if !ok {
			continue
		}
		es.Fields = cached.Len()

		stored, err := a.store.Backend().Read(ctx, ref)
		switch {
		case errors.Is(err, backend.ErrNotFound):
			es.Status = StatusNew
		case err != nil:
			es.Status, es.Err = StatusError, err
		case stored.Equal(cached):
			es.Status = StatusClean
		default:
			es.Status = StatusModified
		}
		out = append(out, es)
	}
	return out
}

// Shutdown stops the periodic flush, tolerating an already stopped loop, and
// performs the final synchronous flush.
func (a *Admin) Shutdown(ctx context.Context) store.FlushReport {
	if err := a.sched.Stop(); err != nil && !errors.Is(err, scheduler.ErrNotRunning) {
		log.WithError(err).Warn("failed to stop auto flush")
	}
	report := a.store.Flush(ctx)
	entry := log.WithField("kind", a.store.Kind().Name)
	if report.OK() {
		entry.Info("final flush: " + report.String())
	} else {
		entry.WithError(report.Err()).Error("final flush: " + report.String())
	}
	return report
}
