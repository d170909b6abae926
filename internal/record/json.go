// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrNotObject is returned by Parse when the document is valid JSON but not
// an object.
var ErrNotObject = errors.New("document is not a JSON object")

// Parse decodes a JSON object into a Record, keeping document field order.
func Parse(data []byte) (*Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		return nil, ErrNotObject
	}
	return fromObject(res), nil
}

func fromObject(res gjson.Result) *Record {
	r := New()
	res.ForEach(func(k, v gjson.Result) bool {
		r.Set(k.String(), fromResult(v))
		return true
	})
	return r
}

func fromResult(res gjson.Result) Value {
	switch res.Type {
	case gjson.Null:
		return NullValue()
	case gjson.False:
		return BoolValue(false)
	case gjson.True:
		return BoolValue(true)
	case gjson.Number:
		return NumberValue(strings.TrimSpace(res.Raw))
	case gjson.String:
		return StringValue(res.Str)
	case gjson.JSON:
		if res.IsObject() {
			return ObjectValue(fromObject(res))
		}
		items := res.Array()
		arr := make([]Value, len(items))
		for i, item := range items {
			arr[i] = fromResult(item)
		}
		return ArrayValue(arr...)
	}
	return NullValue()
}

// MarshalJSON encodes fields in order. The output for a given record is
// always the same bytes.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range r.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		v, _ := r.Get(k)
		if err := v.encode(buf); err != nil {
			return fmt.Errorf("field %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		if !gjson.Valid(v.str) || gjson.Parse(v.str).Type != gjson.Number {
			return fmt.Errorf("invalid number literal %q", v.str)
		}
		buf.WriteString(v.str)
	case String:
		sb, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(sb)
	case Array:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		return v.obj.encode(buf)
	}
	return nil
}
