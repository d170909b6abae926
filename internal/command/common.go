// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/config"
	"github.com/staranto/leobotgo/internal/datadir"
	"github.com/staranto/leobotgo/internal/meta"
	"github.com/staranto/leobotgo/internal/record"
	"github.com/staranto/leobotgo/internal/store"
	"github.com/staranto/leobotgo/internal/subsystem"
)

// Session resolves the subsystems a command runs against. Inside the serve
// console it holds the long lived set. Otherwise each command opens a set from
// the root flags and closes it, with its final flush, when done.
type Session struct {
	set  *subsystem.Set
	opts subsystem.Options
}

// Attached reports whether commands share a long lived set.
func (s *Session) Attached() bool { return s != nil && s.set != nil }

// Options returns the settings the session's set was opened with, or the
// ones the root flags select.
func (s *Session) Options(cmd *cli.Command) subsystem.Options {
	if s.Attached() {
		return s.opts
	}
	return SubsystemOptions(cmd)
}

// With runs fn against the session's subsystems.
func (s *Session) With(ctx context.Context, cmd *cli.Command, fn func(*subsystem.Set) error) error {
	if s.Attached() {
		return fn(s.set)
	}

	set, err := OpenSubsystems(ctx, cmd)
	if err != nil {
		return err
	}
	err = fn(set)
	if cerr := set.Close(ctx); cerr != nil {
		err = errors.Join(err, fmt.Errorf("final flush failed: %w", cerr))
	}
	return err
}

// SubsystemOptions maps the root flags onto subsystem options.
func SubsystemOptions(cmd *cli.Command) subsystem.Options {
	opts := subsystem.Options{
		Backend:  cmd.String("backend"),
		DataDir:  cmd.String("data-dir"),
		Bucket:   cmd.String("s3-bucket"),
		Prefix:   cmd.String("s3-prefix"),
		Region:   cmd.String("s3-region"),
		Profile:  cmd.String("s3-profile"),
		Endpoint: cmd.String("s3-endpoint"),
		Interval: cmd.Duration("interval"),
	}
	opts.MaxAttempts, _ = config.GetInt("s3.max_attempts", 0)
	if opts.DataDir == "" {
		opts.DataDir, _ = datadir.Dir()
	}
	return opts
}

// OpenSubsystems opens both subsystems from the root flags, preparing the
// data directory when the file backend is selected.
func OpenSubsystems(ctx context.Context, cmd *cli.Command) (*subsystem.Set, error) {
	opts := SubsystemOptions(cmd)
	if opts.Backend == "" || opts.Backend == subsystem.BackendFile {
		if err := datadir.EnsureBaseDir(opts.DataDir); err != nil {
			return nil, err
		}
	}
	return subsystem.Open(ctx, opts)
}

// GetMeta returns the meta.Meta stored in the command's Metadata. If missing
// or of an unexpected type, it returns the zero value.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}
	}
	for _, c := range []*cli.Command{cmd, cmd.Root()} {
		if m, ok := c.Metadata["meta"].(meta.Meta); ok {
			return m
		}
	}
	return meta.Meta{}
}

// Stdout is where command results go.
func Stdout(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// Selected resolves the --kind flag to subsystems. "all" selects both.
func Selected(set *subsystem.Set, cmd *cli.Command) ([]*subsystem.Subsystem, error) {
	kind := cmd.String("kind")
	if kind == "" || kind == "all" {
		return set.All(), nil
	}
	sub, err := set.ByName(kind)
	if err != nil {
		return nil, err
	}
	return []*subsystem.Subsystem{sub}, nil
}

// Target is the record a command addresses.
type Target struct {
	Scope  string
	Entity string
}

// ParseTarget consumes "<scope> [entity]" from args and returns the rest.
// Flat kinds take the scope alone.
func ParseTarget(kind backend.Kind, args []string) (Target, []string, error) {
	if len(args) == 0 {
		return Target{}, nil, errors.New("missing scope (a guild id or \"global\")")
	}
	t := Target{Scope: args[0]}
	if err := store.ValidateScope(t.Scope); err != nil {
		return Target{}, nil, err
	}
	args = args[1:]

	if kind.Nested {
		if len(args) == 0 || strings.Contains(args[0], "=") {
			return Target{}, nil, errors.New("missing entity (a user id)")
		}
		t.Entity, args = args[0], args[1:]
	}
	return t, args, nil
}

// ParseValue reads a command line value as a JSON literal when it is one
// and as a plain string otherwise.
func ParseValue(raw string) record.Value {
	if raw != "" && gjson.Valid(raw) {
		if wrapped, err := record.Parse([]byte(`{"v":` + raw + `}`)); err == nil {
			if v, ok := wrapped.Get("v"); ok {
				return v
			}
		}
	}
	return record.StringValue(raw)
}

// Assignment is one field=value argument. Dotted fields address nested
// records.
type Assignment struct {
	Path  []string
	Value record.Value
}

func ParseAssignments(args []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(args))
	for _, arg := range args {
		field, raw, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		out = append(out, Assignment{Path: strings.Split(field, "."), Value: ParseValue(raw)})
	}
	return out, nil
}

// Apply sets the value, creating intermediate records as needed.
func (a Assignment) Apply(rec *record.Record) {
	cur := rec
	for _, p := range a.Path[:len(a.Path)-1] {
		cur, _ = cur.Child(p, true)
	}
	cur.Set(a.Path[len(a.Path)-1], a.Value)
}

// Unset removes a dotted field. It reports whether anything was removed.
func Unset(rec *record.Record, field string) bool {
	path := strings.Split(field, ".")
	cur := rec
	for _, p := range path[:len(path)-1] {
		var ok bool
		if cur, ok = cur.Child(p, false); !ok {
			return false
		}
	}
	return cur.Delete(path[len(path)-1])
}

// CommandBuilder constructs a cli.Command for the record and cache commands
// using a consistent pattern: metadata, output flags, and the session bound
// action.
type CommandBuilder struct {
	Name        string
	Usage       string
	UsageText   string
	Flags       []cli.Flag
	Commands    []*cli.Command
	NoOutput    bool
	Action      func(context.Context, *cli.Command, *Session) error
	Meta        meta.Meta
	Session     *Session
	Description string
}

// Build returns a configured cli.Command from the builder.
func (cb *CommandBuilder) Build() *cli.Command {
	flags := cb.Flags
	if !cb.NoOutput {
		flags = append(flags, NewOutputFlags(cb.Name)...)
	}

	c := &cli.Command{
		Name:        cb.Name,
		Usage:       cb.Usage,
		UsageText:   cb.UsageText,
		Description: cb.Description,
		Metadata: map[string]any{
			"meta": cb.Meta,
		},
		Flags:    flags,
		Commands: cb.Commands,
	}
	if cb.Action != nil {
		sess, action := cb.Session, cb.Action
		c.Action = func(ctx context.Context, cmd *cli.Command) error {
			log.Debugf("Executing action for %v", GetMeta(cmd).Args)
			return action(ctx, cmd, sess)
		}
	}
	return c
}
