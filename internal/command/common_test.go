// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package command

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		name     string
		kind     backend.Kind
		args     []string
		want     Target
		wantRest []string
		wantErr  bool
	}{
		{"nested", backend.UserData, []string{"123", "42", "a=1"}, Target{"123", "42"}, []string{"a=1"}, false},
		{"global", backend.UserData, []string{"global", "42"}, Target{"global", "42"}, []string{}, false},
		{"flat", backend.Configs, []string{"123", "prefix=!"}, Target{Scope: "123"}, []string{"prefix=!"}, false},
		{"missing scope", backend.UserData, nil, Target{}, nil, true},
		{"missing entity", backend.UserData, []string{"123"}, Target{}, nil, true},
		{"assignment as entity", backend.UserData, []string{"123", "a=1"}, Target{}, nil, true},
		{"bad scope", backend.UserData, []string{"../etc", "42"}, Target{}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest, err := ParseTarget(tt.kind, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.ElementsMatch(t, tt.wantRest, rest)
		})
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw  string
		kind record.Kind
	}{
		{"5", record.Number},
		{"-2.5", record.Number},
		{"true", record.Bool},
		{"null", record.Null},
		{`"quoted"`, record.String},
		{"plain", record.String},
		{"", record.String},
		{`{"a":1}`, record.Object},
		{`[1,2]`, record.Array},
		{"{broken", record.String},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.kind, ParseValue(tt.raw).Kind())
		})
	}

	s, ok := ParseValue(`"quoted"`).AsString()
	assert.True(t, ok)
	assert.Equal(t, "quoted", s)
}

func TestAssignments(t *testing.T) {
	as, err := ParseAssignments([]string{"level=3", "economy.credits=10", "note=a=b"})
	require.NoError(t, err)
	require.Len(t, as, 3)

	rec := record.New()
	for _, a := range as {
		a.Apply(rec)
	}

	level, ok := rec.Int("level")
	assert.True(t, ok)
	assert.Equal(t, int64(3), level)

	econ, ok := rec.Child("economy", false)
	require.True(t, ok)
	credits, _ := econ.Int("credits")
	assert.Equal(t, int64(10), credits)

	note, _ := rec.String("note")
	assert.Equal(t, "a=b", note)

	assert.True(t, Unset(rec, "economy.credits"))
	assert.False(t, Unset(rec, "economy.credits"))
	assert.False(t, Unset(rec, "missing.field"))
	assert.Equal(t, 0, econ.Len())

	_, err = ParseAssignments([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseAssignments([]string{"=5"})
	assert.Error(t, err)
}

func TestSplitLine(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{"flush --kind all", []string{"flush", "--kind", "all"}, false},
		{"  spaced\t out  ", []string{"spaced", "out"}, false},
		{`set global 42 nick="leo the lion"`, []string{"set", "global", "42", "nick=leo the lion"}, false},
		{`set global 42 raw='{"a": 1}'`, []string{"set", "global", "42", `raw={"a": 1}`}, false},
		{`a\ b`, []string{"a b"}, false},
		{`empty ""`, []string{"empty", ""}, false},
		{"", nil, false},
		{`open "quote`, nil, true},
		{`trailing\`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := SplitLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidators(t *testing.T) {
	assert.NoError(t, FlagValidators("json", OutputValidator))
	assert.Error(t, FlagValidators("xml", OutputValidator))

	assert.NoError(t, BackendValidator("s3"))
	assert.Error(t, BackendValidator("sqlite"))

	assert.NoError(t, KindValidator(true)("all"))
	assert.Error(t, KindValidator(false)("all"))
	assert.NoError(t, KindValidator(false)("configs"))

	assert.Error(t, JammedFlagValidator("--output"))
	assert.NoError(t, JammedFlagValidator("/data"))

	assert.NoError(t, PositiveDurationValidator(time.Minute))
	assert.Error(t, PositiveDurationValidator(time.Duration(0)))
}

func TestFormatOldBalance(t *testing.T) {
	assert.Equal(t, "none", oldBalance(0, false))
	assert.Equal(t, "0", oldBalance(0, true))
	assert.Equal(t, "1500", oldBalance(1500, true))
}
