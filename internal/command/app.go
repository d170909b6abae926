// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"io"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/config"
	"github.com/staranto/leobotgo/internal/meta"
)

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {

	// The arg[1] immediately following the binary (arg[0]) is the leobot
	// subcommand and also represents the namespace key to be used when
	// retrieving config values. arg[1] could be -h/--help, so ignore it if it
	// appears to be a flag.
	cfg, _ := config.Load()
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") {
		cfg.Namespace = args[1]
	}

	meta := meta.Meta{
		Args:    args,
		Config:  cfg,
		Context: ctx,
	}

	app := &cli.Command{
		Name:  "leobot",
		Usage: "LeoBot persistence cache",
		Flags: append(NewRootFlags(),
			&cli.BoolFlag{
				Name:        "version",
				Aliases:     []string{"v"},
				Usage:       "leobot version info",
				HideDefault: true,
			},
		),
		Metadata: map[string]any{
			"meta": meta,
		},
	}

	var sess *Session
	app.Commands = append(commands(meta, sess),
		ServeCommandBuilder(meta, sess),
		CompletionCommandBuilder(app, meta),
	)
	sortFlags(app)

	return app, nil
}

// NewConsoleApp builds the command tree for one serve console line. Every
// command runs against the console's shared set.
func NewConsoleApp(meta meta.Meta, sess *Session, out, errOut io.Writer) *cli.Command {
	app := &cli.Command{
		Name:      "leobot",
		Usage:     "LeoBot console",
		Writer:    out,
		ErrWriter: errOut,
		// Errors are reported by the console loop; the process keeps running.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Metadata: map[string]any{
			"meta": meta,
		},
	}
	app.Commands = commands(meta, sess)
	sortFlags(app)
	return app
}

func commands(meta meta.Meta, sess *Session) []*cli.Command {
	cmds := []*cli.Command{
		GetCommandBuilder(meta, sess),
		SetCommandBuilder(meta, sess),
		DiffCommandBuilder(meta, sess),
		ListCommandBuilder(meta, sess),
		CreditsCommandBuilder(meta, sess),
	}
	return append(cmds, CacheCommandBuilders(meta, sess)...)
}

// Make sure flags are sorted for the --help text.
func sortFlags(app *cli.Command) {
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}
}
