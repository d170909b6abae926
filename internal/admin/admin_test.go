// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package admin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/backend/file"
	"github.com/staranto/leobotgo/internal/record"
	"github.com/staranto/leobotgo/internal/scheduler"
	"github.com/staranto/leobotgo/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var ctx = context.Background()

func newTestAdmin(t *testing.T) (*Admin, string) {
	t.Helper()
	dir := t.TempDir()
	st := store.New(backend.UserData, file.NewBackendFile(file.FromRootDir(dir)))
	sched := scheduler.New("userdata", time.Hour, st)
	return New(st, sched), dir
}

func setCredits(t *testing.T, a *Admin, scope, entity string, n int64) {
	t.Helper()
	rec := record.New()
	rec.Set("credits", record.IntValue(n))
	require.NoError(t, a.Store().Set(scope, entity, rec))
}

func TestManualFlush_RestoresSchedulerState(t *testing.T) {
	tests := []struct {
		name    string
		running bool
	}{
		{"running", true},
		{"stopped", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, dir := newTestAdmin(t)
			if tt.running {
				require.NoError(t, a.Scheduler().Start())
				defer a.Scheduler().Stop()
			}
			setCredits(t, a, "42", "7", 10)

			report, err := a.ManualFlush(ctx)
			require.NoError(t, err)
			assert.True(t, report.OK())
			assert.Equal(t, 1, report.Total())
			assert.FileExists(t, filepath.Join(dir, "userdata", "42", "7.json"))
			assert.Equal(t, tt.running, a.Scheduler().Running())
		})
	}
}

func TestSetAutoFlush(t *testing.T) {
	a, _ := newTestAdmin(t)

	msg, err := a.SetAutoFlush(false)
	assert.ErrorIs(t, err, scheduler.ErrNotRunning)
	assert.Equal(t, "Auto flush loop is not running.", msg)

	msg, err = a.SetAutoFlush(true)
	require.NoError(t, err)
	assert.Equal(t, "Auto flush loop has been started.", msg)

	msg, err = a.SetAutoFlush(true)
	assert.ErrorIs(t, err, scheduler.ErrAlreadyRunning)
	assert.Equal(t, "Auto flush loop is already running.", msg)

	msg, err = a.SetAutoFlush(false)
	require.NoError(t, err)
	assert.Equal(t, "Auto flush loop has been cancelled.", msg)
}

func TestClearCache(t *testing.T) {
	a, dir := newTestAdmin(t)
	require.NoError(t, a.Scheduler().Start())
	setCredits(t, a, "42", "7", 10)

	report, err := a.ClearCache(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, len(report.Succeeded))
	assert.Equal(t, 0, a.Store().Len())
	assert.FileExists(t, filepath.Join(dir, "userdata", "42", "7.json"))
	assert.True(t, a.Scheduler().Running())

	require.NoError(t, a.Scheduler().Stop())
}

func TestReloadAll(t *testing.T) {
	a, dir := newTestAdmin(t)
	setCredits(t, a, "42", "7", 10)
	_, err := a.ManualFlush(ctx)
	require.NoError(t, err)

	p := filepath.Join(dir, "userdata", "42", "7.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"credits": 99}`), 0o644))

	report, err := a.ReloadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, report.Reloaded, 1)

	rec, ok := a.Store().Snapshot("42", "7")
	require.True(t, ok)
	got, _ := rec.Int("credits")
	assert.Equal(t, int64(99), got)
}

func TestDiff(t *testing.T) {
	a, _ := newTestAdmin(t)

	_, err := a.Diff(ctx, "42", "7")
	assert.ErrorIs(t, err, ErrNotCached)

	setCredits(t, a, "42", "7", 10)
	out, err := a.Diff(ctx, "42", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "credits")

	_, err = a.ManualFlush(ctx)
	require.NoError(t, err)
	out, err = a.Diff(ctx, "42", "7")
	require.NoError(t, err)
	assert.Empty(t, out)

	require.NoError(t, a.Store().Update(ctx, "42", "7", false, func(r *record.Record) error {
		r.Set("credits", record.IntValue(20))
		return nil
	}))
	out, err = a.Diff(ctx, "42", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "20")
}

func TestPending(t *testing.T) {
	a, _ := newTestAdmin(t)
	setCredits(t, a, "42", "1", 1)
	setCredits(t, a, "42", "2", 2)
	_, err := a.ManualFlush(ctx)
	require.NoError(t, err)

	require.NoError(t, a.Store().Update(ctx, "42", "2", false, func(r *record.Record) error {
		r.Set("credits", record.IntValue(3))
		return nil
	}))
	setCredits(t, a, "42", "3", 3)

	got := map[string]Status{}
	for _, es := range a.Pending(ctx) {
		got[es.Ref.Entity] = es.Status
	}
	assert.Equal(t, map[string]Status{
		"1": StatusClean,
		"2": StatusModified,
		"3": StatusNew,
	}, got)
}

func TestShutdown(t *testing.T) {
	a, dir := newTestAdmin(t)
	require.NoError(t, a.Scheduler().Start())
	setCredits(t, a, "global", "7", 5)

	report := a.Shutdown(ctx)
	assert.True(t, report.OK())
	assert.False(t, a.Scheduler().Running())
	assert.FileExists(t, filepath.Join(dir, "userdata", "global", "7.json"))

	// A second shutdown tolerates the stopped loop.
	report = a.Shutdown(ctx)
	assert.True(t, report.OK())
}
