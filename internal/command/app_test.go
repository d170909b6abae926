// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/staranto/leobotgo/internal/economy"
)

// run executes one leobot invocation against dir and returns its stdout.
func run(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()
	full := append([]string{"leobot", "--data-dir", dir, "--backend", "file"}, args...)

	app, err := InitApp(context.Background(), full)
	require.NoError(t, err)

	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	if stdin != "" {
		app.Reader = strings.NewReader(stdin)
	}
	err = app.Run(context.Background(), full)
	return out.String(), err
}

func readStored(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestSetThenGet(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "", "set", "global", "42", "level=3", "nick=leo", "economy.credits=10")
	require.NoError(t, err)

	stored := readStored(t, filepath.Join(dir, "userdata", "global", "42.json"))
	assert.Equal(t, int64(3), gjson.Get(stored, "level").Int())
	assert.Equal(t, "leo", gjson.Get(stored, "nick").String())
	assert.Equal(t, int64(10), gjson.Get(stored, "economy.credits").Int())

	out, err := run(t, dir, "", "get", "global", "42", "--field", "economy.credits")
	require.NoError(t, err)
	assert.Equal(t, "10\n", out)

	out, err = run(t, dir, "", "get", "global", "42", "--output", "json")
	require.NoError(t, err)
	assert.True(t, gjson.Valid(out))
	assert.Equal(t, "leo", gjson.Get(out, "nick").String())

	_, err = run(t, dir, "", "set", "global", "42", "--delete", "nick")
	require.NoError(t, err)
	stored = readStored(t, filepath.Join(dir, "userdata", "global", "42.json"))
	assert.False(t, gjson.Get(stored, "nick").Exists())
}

func TestGet_Missing(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "get", "global", "404")
	assert.ErrorIs(t, err, ErrNoRecord)
}

func TestSet_Configs(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "", "set", "--kind", "configs", "123", "prefix=!")
	require.NoError(t, err)

	stored := readStored(t, filepath.Join(dir, "configs", "123.json"))
	assert.Equal(t, "!", gjson.Get(stored, "prefix").String())
}

func TestSet_RejectsBadScope(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "set", "guild-one", "42", "level=1")
	assert.Error(t, err)
}

func TestCredits(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	out, err := run(t, dir, "", "credits", "balance", "42")
	require.NoError(t, err)
	assert.Equal(t, "user 42 doesn't have an account!\n", out)

	out, err = run(t, dir, "", "credits", "payday", "42")
	require.NoError(t, err)
	assert.Equal(t, "Payday redeemed! You earned 500 credits! Your next payday is in 24h 0m 0s!\n", out)

	out, err = run(t, dir, "", "credits", "payday", "42")
	require.NoError(t, err)
	assert.Equal(t, "Not yet! Your next payday is in 24h 0m 0s!\n", out)

	_, err = run(t, dir, "", "credits", "withdraw", "42", "700")
	assert.ErrorIs(t, err, economy.ErrInsufficientFunds)

	out, err = run(t, dir, "", "credits", "balance", "42")
	require.NoError(t, err)
	assert.Equal(t, "user 42 has 500 credits\n", out)

	out, err = run(t, dir, "", "credits", "set", "42", "43", "1000")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully set the account balance of the following users to 1000:")
	assert.Contains(t, out, "42 (500 -> 1000)")
	assert.Contains(t, out, "43 (none -> 1000)")

	out, err = run(t, dir, "", "credits", "add", "43", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "43 (1000 -> 1005)")

	stored := readStored(t, filepath.Join(dir, "userdata", "global", "43.json"))
	assert.Equal(t, int64(1005), gjson.Get(stored, "economy.credits").Int())
}

func TestFlush_Reports(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "", "flush")
	require.NoError(t, err)
	assert.Contains(t, out, "userdata: 0/0 entities flushed successfully")
	assert.Contains(t, out, "configs: 0/0 entities flushed successfully")

	out, err = run(t, dir, "", "flush", "--kind", "userdata", "--output", "json")
	require.NoError(t, err)
	assert.Equal(t, "userdata", gjson.Get(out, "0.kind").String())
	assert.Equal(t, int64(0), gjson.Get(out, "0.total").Int())
}

func TestFlushAuto_RequiresConsole(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "flush-auto", "off")
	assert.Error(t, err)
}

func TestPurgeTemp(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "userdata", "global", "42.json.123.tmp")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("{"), 0o644))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	out, err := run(t, dir, "", "purge-temp", "--hours", "1")
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 temp file(s).\n", out)
	assert.NoFileExists(t, stale)
}

func TestServe_Console(t *testing.T) {
	dir := t.TempDir()
	script := strings.Join([]string{
		`set global 42 nick="leo the lion"`,
		`list --kind userdata --output json`,
		`flush --kind userdata`,
		`flush-auto off --kind userdata`,
		`flush-auto off --kind userdata`,
		`get global 404`,
		`quit`,
		`set global 43 never=reached`,
	}, "\n") + "\n"

	out, err := run(t, dir, script, "--interval", "1h", "serve")
	require.NoError(t, err)

	assert.Contains(t, out, consolePrompt)
	assert.Contains(t, out, `"status": "new"`)
	assert.Contains(t, out, "userdata: 1/1 entities flushed successfully")
	assert.Contains(t, out, "userdata: Auto flush loop has been cancelled.")
	assert.Contains(t, out, "userdata: Auto flush loop is not running.")

	stored := readStored(t, filepath.Join(dir, "userdata", "global", "42.json"))
	assert.Equal(t, "leo the lion", gjson.Get(stored, "nick").String())
	assert.NoFileExists(t, filepath.Join(dir, "userdata", "global", "43.json"))
}

func TestServe_FinalFlush(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "set --kind configs 7 prefix=?\n", "--interval", "1h", "serve")
	require.NoError(t, err)

	stored := readStored(t, filepath.Join(dir, "configs", "7.json"))
	assert.Equal(t, "?", gjson.Get(stored, "prefix").String())
}
