// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/staranto/leobotgo/internal/record"
)

// Sentinel errors shared by all backends. Implementations wrap them so callers
// can test with errors.Is while keeping the underlying cause in the message.
var (
	ErrNotFound        = errors.New("record not found")
	ErrIO              = errors.New("record I/O failure")
	ErrMalformedRecord = errors.New("malformed record")
	ErrInvalidRef      = errors.New("invalid record reference")
)

// Kind describes one store kind and how its records are laid out beneath the
// data root. Nested kinds use <root>/<scope>/<entity>.json, flat kinds use
// <root>/<scope>.json.
type Kind struct {
	Name   string
	Root   string
	Nested bool
}

var (
	UserData = Kind{Name: "userdata", Root: "userdata", Nested: true}
	Configs  = Kind{Name: "configs", Root: "configs", Nested: false}
)

// KindByName resolves one of the built-in kinds.
func KindByName(name string) (Kind, error) {
	switch name {
	case UserData.Name:
		return UserData, nil
	case Configs.Name:
		return Configs, nil
	}
	return Kind{}, fmt.Errorf("unknown store kind: %q (supported: %s, %s)", name, UserData.Name, Configs.Name)
}

// Ref names a single record.
type Ref struct {
	Kind   Kind
	Scope  string
	Entity string
}

func (r Ref) String() string {
	if !r.Kind.Nested {
		return r.Kind.Name + ":" + r.Scope
	}
	return r.Kind.Name + ":" + r.Scope + "/" + r.Entity
}

// RelPath returns the slash separated location of the record relative to the
// data root.
func (r Ref) RelPath() string {
	if !r.Kind.Nested {
		return path.Join(r.Kind.Root, r.Scope+".json")
	}
	return path.Join(r.Kind.Root, r.Scope, r.Entity+".json")
}

// Validate rejects components that would escape or alias the layout.
func (r Ref) Validate() error {
	if r.Kind.Root == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidRef)
	}
	parts := []string{r.Scope}
	if r.Kind.Nested {
		parts = append(parts, r.Entity)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidRef, r.String())
		}
	}
	return nil
}

// Backend persists serialized records.
type Backend interface {
	// Read returns ErrNotFound when nothing is stored for ref and
	// ErrMalformedRecord when the stored bytes cannot be parsed.
	Read(ctx context.Context, ref Ref) (*record.Record, error)
	// Write replaces the stored record. Readers never observe a partial write.
	Write(ctx context.Context, ref Ref, rec *record.Record) error
	// Exists probes for a stored record without parsing it.
	Exists(ctx context.Context, ref Ref) (bool, error)
	// Path returns where ref lives, for messages and diagnostics.
	Path(ref Ref) string
	String() string
}

// Encode serializes rec the way every backend stores it: indented JSON with a
// trailing newline. Equal input always yields identical bytes.
func Encode(rec *record.Record) ([]byte, error) {
	if rec == nil {
		rec = record.New()
	}
	raw, err := rec.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Decode parses stored bytes, mapping parse failures to ErrMalformedRecord.
func Decode(ref Ref, data []byte) (*record.Record, error) {
	rec, err := record.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRecord, ref, err)
	}
	return rec, nil
}
