// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/admin"
	"github.com/staranto/leobotgo/internal/meta"
	"github.com/staranto/leobotgo/internal/output"
	"github.com/staranto/leobotgo/internal/record"
	"github.com/staranto/leobotgo/internal/subsystem"
)

// ErrNoRecord is returned when a command addresses a record that does not
// exist.
var ErrNoRecord = errors.New("no record")

// lookup loads the addressed record into the cache, returning its snapshot.
func lookup(ctx context.Context, sub *subsystem.Subsystem, t Target) (*record.Record, error) {
	_, ok, err := sub.Store().Get(ctx, t.Scope, t.Entity, false)
	if err != nil {
		return nil, err
	}
	snap, cached := sub.Store().Snapshot(t.Scope, t.Entity)
	if !ok || !cached {
		ref, _ := sub.Store().Ref(t.Scope, t.Entity)
		return nil, fmt.Errorf("%w: %s", ErrNoRecord, ref)
	}
	return snap, nil
}

// GetCommandAction prints one record, or a single field of it with --field.
func GetCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		sub, err := set.ByName(cmd.String("kind"))
		if err != nil {
			return err
		}
		t, rest, err := ParseTarget(sub.Kind(), cmd.Args().Slice())
		if err != nil {
			return err
		}
		if len(rest) > 0 {
			return fmt.Errorf("unexpected arguments: %v", rest)
		}

		rec, err := lookup(ctx, sub, t)
		if err != nil {
			return err
		}

		if field := cmd.String("field"); field != "" {
			raw, err := rec.MarshalJSON()
			if err != nil {
				return err
			}
			res := gjson.GetBytes(raw, field)
			if !res.Exists() {
				return fmt.Errorf("field %q not set", field)
			}
			_, err = fmt.Fprintln(Stdout(cmd), res.String())
			return err
		}

		return output.EmitRecord(rec, output.OptionsFromCommand(cmd), Stdout(cmd))
	})
}

func GetCommandBuilder(meta meta.Meta, sess *Session) *cli.Command {
	return (&CommandBuilder{
		Name:      "get",
		Usage:     "show a stored record",
		UsageText: "leobot get [--kind userdata|configs] <scope> [entity] [options]",
		Flags: []cli.Flag{
			NewKindFlag(false),
			&cli.StringFlag{
				Name:  "field",
				Usage: "print a single field, as a gjson path",
			},
		},
		Action:  GetCommandAction,
		Meta:    meta,
		Session: sess,
	}).Build()
}

// SetCommandAction applies field=value assignments to a record, creating it
// when needed. Values that parse as JSON keep their type.
func SetCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		sub, err := set.ByName(cmd.String("kind"))
		if err != nil {
			return err
		}
		t, rest, err := ParseTarget(sub.Kind(), cmd.Args().Slice())
		if err != nil {
			return err
		}
		assignments, err := ParseAssignments(rest)
		if err != nil {
			return err
		}
		deletes := cmd.StringSlice("delete")
		if len(assignments) == 0 && len(deletes) == 0 {
			return errors.New("nothing to set: pass field=value arguments or --delete")
		}

		err = sub.Store().Update(ctx, t.Scope, t.Entity, true, func(r *record.Record) error {
			for _, a := range assignments {
				a.Apply(r)
			}
			for _, field := range deletes {
				Unset(r, field)
			}
			return nil
		})
		if err != nil {
			return err
		}

		rec, _ := sub.Store().Snapshot(t.Scope, t.Entity)
		return output.EmitRecord(rec, output.OptionsFromCommand(cmd), Stdout(cmd))
	})
}

func SetCommandBuilder(meta meta.Meta, sess *Session) *cli.Command {
	return (&CommandBuilder{
		Name:      "set",
		Usage:     "set fields of a record",
		UsageText: "leobot set [--kind userdata|configs] <scope> [entity] field=value... [options]",
		Flags: []cli.Flag{
			NewKindFlag(false),
			&cli.StringSliceFlag{
				Name:  "delete",
				Usage: "field to remove, may be repeated",
			},
		},
		Action:  SetCommandAction,
		Meta:    meta,
		Session: sess,
	}).Build()
}

// DiffCommandAction shows how the cached record differs from the stored one.
func DiffCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		sub, err := set.ByName(cmd.String("kind"))
		if err != nil {
			return err
		}
		t, _, err := ParseTarget(sub.Kind(), cmd.Args().Slice())
		if err != nil {
			return err
		}
		if _, err := lookup(ctx, sub, t); err != nil {
			return err
		}

		d, err := sub.Diff(ctx, t.Scope, t.Entity)
		if err != nil {
			return err
		}
		if d == "" {
			d = "no differences\n"
		}
		_, err = fmt.Fprint(Stdout(cmd), d)
		return err
	})
}

func DiffCommandBuilder(meta meta.Meta, sess *Session) *cli.Command {
	return (&CommandBuilder{
		Name:      "diff",
		Usage:     "compare a cached record with its stored copy",
		UsageText: "leobot diff [--kind userdata|configs] <scope> [entity]",
		Flags:     []cli.Flag{NewKindFlag(false)},
		NoOutput:  true,
		Action:    DiffCommandAction,
		Meta:      meta,
		Session:   sess,
	}).Build()
}

var listColumns = []string{"kind", "scope", "entity", "status", "fields", "error"}

// ListCommandAction lists cached records and whether they match the backend.
func ListCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		subs, err := Selected(set, cmd)
		if err != nil {
			return err
		}

		var rows []map[string]interface{}
		for _, sub := range subs {
			for _, es := range sub.Pending(ctx) {
				row := map[string]interface{}{
					"kind":   es.Ref.Kind.Name,
					"scope":  es.Ref.Scope,
					"entity": es.Ref.Entity,
					"status": string(es.Status),
					"fields": es.Fields,
				}
				if es.Status == admin.StatusError {
					row["error"] = es.Err.Error()
				}
				rows = append(rows, row)
			}
		}
		return output.SliceDiceSpit(rows, listColumns, output.OptionsFromCommand(cmd), Stdout(cmd))
	})
}

func ListCommandBuilder(meta meta.Meta, sess *Session) *cli.Command {
	return (&CommandBuilder{
		Name:        "list",
		Usage:       "list cached records",
		UsageText:   "leobot list [--kind userdata|configs|all] [options]",
		Description: "Outside the serve console the cache starts empty, so list is mostly useful there.",
		Flags:       []cli.Flag{NewKindFlag(true)},
		Action:      ListCommandAction,
		Meta:        meta,
		Session:     sess,
	}).Build()
}
