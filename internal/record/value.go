// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Null Kind = iota
	String
	Number
	Bool
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	}
	return "unknown"
}

// Value is a single dynamically typed field value. Numbers are held as their
// JSON literal so integers round trip without float conversion.
type Value struct {
	kind Kind
	str  string
	b    bool
	arr  []Value
	obj  *Record
}

func NullValue() Value { return Value{kind: Null} }

func StringValue(s string) Value { return Value{kind: String, str: s} }

func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

func IntValue(i int64) Value {
	return Value{kind: Number, str: strconv.FormatInt(i, 10)}
}

// FloatValue returns a Number. NaN and infinities have no JSON form and
// become Null.
func FloatValue(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NullValue()
	}
	return Value{kind: Number, str: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberValue wraps an already valid JSON number literal.
func NumberValue(literal string) Value {
	return Value{kind: Number, str: literal}
}

func ArrayValue(items ...Value) Value {
	return Value{kind: Array, arr: items}
}

func ObjectValue(r *Record) Value {
	if r == nil {
		r = New()
	}
	return Value{kind: Object, obj: r}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == Null }

func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.str, true
}

// AsInt accepts integral numbers in any literal form ("500", "500.0", "5e2").
func (v Value) AsInt() (int64, bool) {
	if v.kind != Number {
		return 0, false
	}
	if i, err := strconv.ParseInt(v.str, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return 0, false
	}
	return int64(f), true
}

func (v Value) AsFloat() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.str, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.b, true
}

func (v Value) AsArray() ([]Value, bool) {
	if v.kind != Array {
		return nil, false
	}
	return v.arr, true
}

func (v Value) AsRecord() (*Record, bool) {
	if v.kind != Object {
		return nil, false
	}
	return v.obj, true
}

// Interface converts the value into the plain Go types encoding/json would
// produce (map[string]any, []any, float64, ...).
func (v Value) Interface() any {
	switch v.kind {
	case String:
		return v.str
	case Number:
		f, _ := v.AsFloat()
		return f
	case Bool:
		return v.b
	case Array:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case Object:
		return v.obj.Map()
	}
	return nil
}

func (v Value) clone() Value {
	switch v.kind {
	case Array:
		arr := make([]Value, len(v.arr))
		for i, item := range v.arr {
			arr[i] = item.clone()
		}
		return Value{kind: Array, arr: arr}
	case Object:
		return Value{kind: Object, obj: v.obj.Clone()}
	}
	return v
}

func (v Value) equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case String:
		return v.str == o.str
	case Bool:
		return v.b == o.b
	case Number:
		if v.str == o.str {
			return true
		}
		a, aok := v.AsFloat()
		b, bok := o.AsFloat()
		return aok && bok && a == b
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		return v.obj.Equal(o.obj)
	}
	return false
}

// FromInterface converts plain Go values (as produced by encoding/json or
// yaml) into a Value. Unsupported types become Null.
func FromInterface(x any) Value {
	switch t := x.(type) {
	case nil:
		return NullValue()
	case Value:
		return t
	case *Record:
		return ObjectValue(t)
	case string:
		return StringValue(t)
	case bool:
		return BoolValue(t)
	case int:
		return IntValue(int64(t))
	case int32:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case float32:
		return FloatValue(float64(t))
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return IntValue(int64(t))
		}
		return FloatValue(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromInterface(item)
		}
		return ArrayValue(items...)
	case map[string]any:
		return ObjectValue(FromMap(t))
	}
	return NullValue()
}
