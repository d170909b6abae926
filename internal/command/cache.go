// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/datadir"
	"github.com/staranto/leobotgo/internal/meta"
	"github.com/staranto/leobotgo/internal/output"
	"github.com/staranto/leobotgo/internal/scheduler"
	"github.com/staranto/leobotgo/internal/store"
	"github.com/staranto/leobotgo/internal/subsystem"
)

var reportColumns = []string{"kind", "succeeded", "failed", "total", "duration"}

type kindReport struct {
	kind   string
	report store.FlushReport
}

// emitFlushReports writes one summary per kind and returns the joined
// failures so the command exits non-zero when any entity failed.
func emitFlushReports(cmd *cli.Command, reports []kindReport) error {
	opts := output.OptionsFromCommand(cmd)
	w := Stdout(cmd)

	var errs []error
	rows := make([]map[string]interface{}, 0, len(reports))
	for _, kr := range reports {
		if err := kr.report.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", kr.kind, err))
		}
		rows = append(rows, map[string]interface{}{
			"kind":      kr.kind,
			"succeeded": len(kr.report.Succeeded),
			"failed":    len(kr.report.Failed),
			"total":     kr.report.Total(),
			"duration":  kr.report.Duration.String(),
		})
		if opts.Format == "text" || opts.Format == "" {
			fmt.Fprintf(w, "%s: %s\n", kr.kind, kr.report.String())
		}
	}

	if opts.Format != "text" && opts.Format != "" {
		if err := output.SliceDiceSpit(rows, reportColumns, opts, w); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// FlushCommandAction writes every cached record now.
func FlushCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		subs, err := Selected(set, cmd)
		if err != nil {
			return err
		}
		var reports []kindReport
		var errs []error
		for _, sub := range subs {
			report, err := sub.ManualFlush(ctx)
			errs = append(errs, err)
			reports = append(reports, kindReport{sub.Kind().Name, report})
		}
		return errors.Join(append(errs, emitFlushReports(cmd, reports))...)
	})
}

// ClearCacheCommandAction empties the cache, flushing first unless told not to.
func ClearCacheCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		subs, err := Selected(set, cmd)
		if err != nil {
			return err
		}
		flushFirst := cmd.Bool("flush")
		var reports []kindReport
		var errs []error
		for _, sub := range subs {
			report, err := sub.ClearCache(ctx, flushFirst)
			errs = append(errs, err)
			if flushFirst {
				reports = append(reports, kindReport{sub.Kind().Name, report})
			}
		}
		errs = append(errs, emitFlushReports(cmd, reports))
		if err := errors.Join(errs...); err != nil {
			return err
		}
		_, err = fmt.Fprintln(Stdout(cmd), "Cache cleared.")
		return err
	})
}

var reloadColumns = []string{"kind", "reloaded", "pruned", "failed", "duration"}

// ReloadAllCommandAction re-syncs every cached record with the backend.
func ReloadAllCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		subs, err := Selected(set, cmd)
		if err != nil {
			return err
		}
		opts := output.OptionsFromCommand(cmd)
		w := Stdout(cmd)

		var errs []error
		var rows []map[string]interface{}
		for _, sub := range subs {
			report, err := sub.ReloadAll(ctx)
			errs = append(errs, err)
			if rerr := report.Err(); rerr != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sub.Kind().Name, rerr))
			}
			rows = append(rows, map[string]interface{}{
				"kind":     sub.Kind().Name,
				"reloaded": len(report.Reloaded),
				"pruned":   len(report.Pruned),
				"failed":   len(report.Failed),
				"duration": report.Duration.String(),
			})
			if opts.Format == "text" {
				fmt.Fprintf(w, "%s: %s\n", sub.Kind().Name, report.String())
			}
		}
		if opts.Format != "text" {
			errs = append(errs, output.SliceDiceSpit(rows, reloadColumns, opts, w))
		}
		return errors.Join(errs...)
	})
}

// FlushAutoCommandAction starts or stops the periodic flush. Asking for the
// current state is not an error; the message says so.
func FlushAutoCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	if !sess.Attached() {
		return errors.New("flush-auto only applies inside the serve console")
	}
	var enable bool
	switch strings.ToLower(cmd.Args().First()) {
	case "on", "start", "true":
		enable = true
	case "off", "stop", "false":
		enable = false
	default:
		return errors.New("usage: flush-auto on|off")
	}

	return sess.With(ctx, cmd, func(set *subsystem.Set) error {
		subs, err := Selected(set, cmd)
		if err != nil {
			return err
		}
		w := Stdout(cmd)
		for _, sub := range subs {
			msg, err := sub.SetAutoFlush(enable)
			if err != nil && !errors.Is(err, scheduler.ErrAlreadyRunning) && !errors.Is(err, scheduler.ErrNotRunning) {
				return err
			}
			fmt.Fprintf(w, "%s: %s\n", sub.Kind().Name, msg)
		}
		return nil
	})
}

var statsColumns = []string{"kind", "records", "size"}

// StatsCommandAction summarizes what the file backend has stored.
func StatsCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	opts := sess.Options(cmd)
	if opts.Backend != "" && opts.Backend != subsystem.BackendFile {
		return fmt.Errorf("stats needs the %s backend", subsystem.BackendFile)
	}
	usage, err := datadir.Stat(opts.DataDir)
	if err != nil {
		return err
	}
	rows := make([]map[string]interface{}, 0, len(usage))
	for _, u := range usage {
		rows = append(rows, map[string]interface{}{
			"kind":    u.Kind,
			"records": u.Records,
			"size":    humanize.Bytes(uint64(u.Bytes)),
		})
	}
	return output.SliceDiceSpit(rows, statsColumns, output.OptionsFromCommand(cmd), Stdout(cmd))
}

// PurgeTempCommandAction removes temp files left by interrupted writes.
func PurgeTempCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	opts := sess.Options(cmd)
	if opts.Backend != "" && opts.Backend != subsystem.BackendFile {
		return fmt.Errorf("purge-temp needs the %s backend", subsystem.BackendFile)
	}
	n, err := datadir.PurgeTemp(opts.DataDir, int(cmd.Int("hours")))
	if err != nil {
		return err
	}
	return printf(Stdout(cmd), "Removed %s temp file(s).\n", humanize.Comma(int64(n)))
}

func printf(w io.Writer, format string, a ...any) error {
	_, err := fmt.Fprintf(w, format, a...)
	return err
}

// CacheCommandBuilders returns the cache administration commands.
func CacheCommandBuilders(meta meta.Meta, sess *Session) []*cli.Command {
	return []*cli.Command{
		(&CommandBuilder{
			Name:      "flush",
			Usage:     "write every cached record to the backend",
			UsageText: "leobot flush [--kind userdata|configs|all] [options]",
			Flags:     []cli.Flag{NewKindFlag(true)},
			Action:    FlushCommandAction,
			Meta:      meta,
			Session:   sess,
		}).Build(),
		(&CommandBuilder{
			Name:      "clear-cache",
			Usage:     "empty the cache, flushing it first by default",
			UsageText: "leobot clear-cache [--kind userdata|configs|all] [--no-flush] [options]",
			Flags: []cli.Flag{
				NewKindFlag(true),
				&cli.BoolWithInverseFlag{
					Name:  "flush",
					Usage: "flush before clearing; a failed flush leaves the cache intact",
					Value: true,
				},
			},
			Action:  ClearCacheCommandAction,
			Meta:    meta,
			Session: sess,
		}).Build(),
		(&CommandBuilder{
			Name:      "reload-all",
			Usage:     "replace cached records with their stored copies",
			UsageText: "leobot reload-all [--kind userdata|configs|all] [options]",
			Flags:     []cli.Flag{NewKindFlag(true)},
			Action:    ReloadAllCommandAction,
			Meta:      meta,
			Session:   sess,
		}).Build(),
		(&CommandBuilder{
			Name:      "flush-auto",
			Usage:     "start or stop the periodic flush",
			UsageText: "leobot flush-auto on|off [--kind userdata|configs|all]",
			Flags:     []cli.Flag{NewKindFlag(true)},
			NoOutput:  true,
			Action:    FlushAutoCommandAction,
			Meta:      meta,
			Session:   sess,
		}).Build(),
		(&CommandBuilder{
			Name:      "stats",
			Usage:     "summarize stored records",
			UsageText: "leobot stats [options]",
			Action:    StatsCommandAction,
			Meta:      meta,
			Session:   sess,
		}).Build(),
		(&CommandBuilder{
			Name:      "purge-temp",
			Usage:     "remove temp files left by interrupted writes",
			UsageText: "leobot purge-temp [--hours N]",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "hours",
					Usage: "only remove files older than this many hours",
					Value: 24,
				},
			},
			NoOutput: true,
			Action:   PurgeTempCommandAction,
			Meta:     meta,
			Session:  sess,
		}).Build(),
	}
}
