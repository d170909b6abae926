// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package record

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_KeepsOrderAndTypes(t *testing.T) {
	raw := `{"zeta": 1, "alpha": "a", "flag": true, "none": null, "list": [1, "two", false], "nested": {"b": 2, "a": 1}}`

	r, err := Parse([]byte(raw))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "flag", "none", "list", "nested"}, r.Keys())

	i, ok := r.Int("zeta")
	assert.True(t, ok)
	assert.Equal(t, int64(1), i)

	s, ok := r.String("alpha")
	assert.True(t, ok)
	assert.Equal(t, "a", s)

	v, _ := r.Get("none")
	assert.True(t, v.IsNull())

	v, _ = r.Get("list")
	items, ok := v.AsArray()
	require.True(t, ok)
	assert.Len(t, items, 3)

	child, ok := r.Child("nested", false)
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, child.Keys())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"truncated", `{"credits": 5`},
		{"garbage", `not json`},
		{"array", `[1,2,3]`},
		{"scalar", `42`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestMarshal_Deterministic(t *testing.T) {
	r := New()
	r.Set("credits", IntValue(500))
	r.Set("last_payday", StringValue("2024-01-01T00:00:00Z"))
	r.Set("ratio", FloatValue(0.25))

	a, err := json.Marshal(r)
	require.NoError(t, err)
	b, err := json.Marshal(r.Clone())
	require.NoError(t, err)

	assert.Equal(t, `{"credits":500,"last_payday":"2024-01-01T00:00:00Z","ratio":0.25}`, string(a))
	assert.Equal(t, a, b)
}

func TestRoundTrip_PreservesLargeIntegers(t *testing.T) {
	raw := `{"id":9007199254740993}`
	r, err := Parse([]byte(raw))
	require.NoError(t, err)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, raw, string(out))

	id, ok := r.Int("id")
	assert.True(t, ok)
	assert.Equal(t, int64(9007199254740993), id)
}

func TestSet_ExistingKeyKeepsPosition(t *testing.T) {
	r := New()
	r.Set("a", IntValue(1))
	r.Set("b", IntValue(2))
	r.Set("a", IntValue(3))

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	a, _ := r.Int("a")
	assert.Equal(t, int64(3), a)

	assert.True(t, r.Delete("a"))
	assert.False(t, r.Delete("a"))
	assert.Equal(t, []string{"b"}, r.Keys())
}

func TestClone_IsDeep(t *testing.T) {
	r := New()
	econ, _ := r.Child("economy", true)
	econ.Set("credits", IntValue(10))

	c := r.Clone()
	cEcon, _ := c.Child("economy", false)
	cEcon.Set("credits", IntValue(99))

	got, _ := econ.Int("credits")
	assert.Equal(t, int64(10), got)
	assert.False(t, r.Equal(c))
}

func TestEqual(t *testing.T) {
	a, err := Parse([]byte(`{"x": 1, "y": [true, null]}`))
	require.NoError(t, err)
	b, err := Parse([]byte(`{"y": [true, null], "x": 1.0}`))
	require.NoError(t, err)
	c, err := Parse([]byte(`{"x": 2, "y": [true, null]}`))
	require.NoError(t, err)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.True(t, New().Equal(New()))
}

func TestValue_AsInt(t *testing.T) {
	tests := []struct {
		name   string
		value  Value
		want   int64
		wantOK bool
	}{
		{"plain", NumberValue("500"), 500, true},
		{"float form", NumberValue("500.0"), 500, true},
		{"exponent", NumberValue("5e2"), 500, true},
		{"fraction", NumberValue("1.5"), 0, false},
		{"max", NumberValue("9223372036854775807"), math.MaxInt64, true},
		{"min", NumberValue("-9223372036854775808"), math.MinInt64, true},
		{"above max", NumberValue("9223372036854775808"), 0, false},
		{"above max exponent", NumberValue("9.223372036854775808e18"), 0, false},
		{"below min", NumberValue("-9.3e18"), 0, false},
		{"string", StringValue("500"), 0, false},
		{"null", NullValue(), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.value.AsInt()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromMap(t *testing.T) {
	r := FromMap(map[string]any{
		"b":      "two",
		"a":      float64(1),
		"nested": map[string]any{"ok": true},
	})

	assert.Equal(t, []string{"a", "b", "nested"}, r.Keys())
	a, ok := r.Int("a")
	assert.True(t, ok)
	assert.Equal(t, int64(1), a)
	assert.Equal(t, map[string]any{
		"a":      float64(1),
		"b":      "two",
		"nested": map[string]any{"ok": true},
	}, r.Map())
}
