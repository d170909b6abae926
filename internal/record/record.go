// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"sort"
)

// Record is an ordered field bag. Field order is the order in which keys were
// first set (or read from disk) and is preserved when encoding. A Record is
// not safe for concurrent use on its own; the store serializes access.
type Record struct {
	keys []string
	vals map[string]Value
}

// New returns an empty Record.
func New() *Record {
	return &Record{vals: map[string]Value{}}
}

// FromMap builds a Record from a plain map. Keys are sorted since maps carry
// no order.
func FromMap(m map[string]any) *Record {
	r := New()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.Set(k, FromInterface(m[k]))
	}
	return r
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.vals[key]
	return v, ok
}

func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (r *Record) Set(key string, v Value) {
	if r.vals == nil {
		r.vals = map[string]Value{}
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

func (r *Record) Delete(key string) bool {
	if _, ok := r.vals[key]; !ok {
		return false
	}
	delete(r.vals, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return true
}

// Int returns the field as an integer. The second result is false when the
// field is missing or not an integral number.
func (r *Record) Int(key string) (int64, bool) {
	v, ok := r.Get(key)
	if !ok {
		return 0, false
	}
	return v.AsInt()
}

func (r *Record) String(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Child returns the nested record stored under key. With create set, a
// missing (or non-object) field is replaced by an empty nested record.
func (r *Record) Child(key string, create bool) (*Record, bool) {
	if v, ok := r.Get(key); ok {
		if child, ok := v.AsRecord(); ok {
			return child, true
		}
	}
	if !create {
		return nil, false
	}
	child := New()
	r.Set(key, ObjectValue(child))
	return child, true
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		keys: make([]string, len(r.keys)),
		vals: make(map[string]Value, len(r.vals)),
	}
	copy(c.keys, r.keys)
	for k, v := range r.vals {
		c.vals[k] = v.clone()
	}
	return c
}

// Equal compares content. Field order is ignored, as it is for JSON objects.
func (r *Record) Equal(o *Record) bool {
	if r.Len() != o.Len() {
		return false
	}
	for _, k := range r.Keys() {
		a, _ := r.Get(k)
		b, ok := o.Get(k)
		if !ok || !a.equal(b) {
			return false
		}
	}
	return true
}

// Map converts the record into a plain map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, r.Len())
	for _, k := range r.Keys() {
		v, _ := r.Get(k)
		out[k] = v.Interface()
	}
	return out
}
