// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

var ctx = context.Background()

func TestPath_Layout(t *testing.T) {
	be := NewBackendFile(FromRootDir("/data"))

	tests := []struct {
		name string
		ref  backend.Ref
		want string
	}{
		{"user in guild", backend.Ref{Kind: backend.UserData, Scope: "123", Entity: "456"}, "/data/userdata/123/456.json"},
		{"user global", backend.Ref{Kind: backend.UserData, Scope: "global", Entity: "456"}, "/data/userdata/global/456.json"},
		{"guild config", backend.Ref{Kind: backend.Configs, Scope: "123", Entity: "123"}, "/data/configs/123.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), be.Path(tt.ref))
		})
	}
}

func TestReadWrite(t *testing.T) {
	dir := t.TempDir()
	be := NewBackendFile(FromRootDir(dir))
	ref := backend.Ref{Kind: backend.UserData, Scope: "123", Entity: "456"}

	t.Run("read missing", func(t *testing.T) {
		_, err := be.Read(ctx, ref)
		assert.ErrorIs(t, err, backend.ErrNotFound)

		ok, err := be.Exists(ctx, ref)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("write creates parents", func(t *testing.T) {
		rec := record.New()
		rec.Set("credits", record.IntValue(500))
		rec.Set("last_payday", record.StringValue("2024-01-01T00:00:00Z"))
		require.NoError(t, be.Write(ctx, ref, rec))

		raw, err := os.ReadFile(filepath.Join(dir, "userdata", "123", "456.json"))
		require.NoError(t, err)

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, map[string]any{
			"credits":     float64(500),
			"last_payday": "2024-01-01T00:00:00Z",
		}, decoded)

		ok, err := be.Exists(ctx, ref)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("read back", func(t *testing.T) {
		rec, err := be.Read(ctx, ref)
		require.NoError(t, err)
		credits, ok := rec.Int("credits")
		assert.True(t, ok)
		assert.Equal(t, int64(500), credits)
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(dir, "userdata", "123"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "456.json", entries[0].Name())
	})
}

func TestWrite_Idempotent(t *testing.T) {
	dir := t.TempDir()
	be := NewBackendFile(FromRootDir(dir))
	ref := backend.Ref{Kind: backend.Configs, Scope: "42"}

	rec, err := record.Parse([]byte(`{"prefix":"!","nested":{"b":1,"a":[true,null]}}`))
	require.NoError(t, err)

	require.NoError(t, be.Write(ctx, ref, rec))
	first, err := os.ReadFile(be.Path(ref))
	require.NoError(t, err)

	require.NoError(t, be.Write(ctx, ref, rec))
	second, err := os.ReadFile(be.Path(ref))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	be := NewBackendFile(FromRootDir(dir))
	ref := backend.Ref{Kind: backend.Configs, Scope: "42"}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0o755))
	require.NoError(t, os.WriteFile(be.Path(ref), []byte(`{"prefix": `), 0o644))

	_, err := be.Read(ctx, ref)
	assert.ErrorIs(t, err, backend.ErrMalformedRecord)

	// Malformed still counts as present.
	ok, err := be.Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInvalidRef(t *testing.T) {
	be := NewBackendFile(FromRootDir(t.TempDir()))

	for _, ref := range []backend.Ref{
		{Kind: backend.UserData, Scope: "..", Entity: "1"},
		{Kind: backend.UserData, Scope: "1", Entity: "a/b"},
		{Kind: backend.UserData, Scope: "", Entity: "1"},
		{Kind: backend.Configs, Scope: `x\y`},
	} {
		_, err := be.Read(ctx, ref)
		assert.ErrorIs(t, err, backend.ErrInvalidRef, ref.String())
		assert.ErrorIs(t, be.Write(ctx, ref, record.New()), backend.ErrInvalidRef, ref.String())
	}
}
