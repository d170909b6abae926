// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/config"
	"github.com/staranto/leobotgo/internal/datadir"
	"github.com/staranto/leobotgo/internal/meta"
	"github.com/staranto/leobotgo/internal/subsystem"
)

const consolePrompt = "leobot> "

// ServeCommandAction opens both subsystems for the life of the process. The
// schedulers flush in the background while the console runs commands against
// the shared cache. SIGINT or SIGTERM, or quit at the console, stops the
// schedulers and runs the final flush.
func ServeCommandAction(ctx context.Context, cmd *cli.Command, sess *Session) error {
	if sess.Attached() {
		return errors.New("already serving")
	}

	opts := SubsystemOptions(cmd)
	if opts.Backend == "" || opts.Backend == subsystem.BackendFile {
		if err := datadir.EnsureBaseDir(opts.DataDir); err != nil {
			return err
		}
		hours, _ := config.GetInt("purge_hours", 24)
		if n, err := datadir.PurgeTemp(opts.DataDir, hours); err != nil {
			log.WithError(err).Warn("temp file purge failed")
		} else if n > 0 {
			log.WithField("count", n).Info("removed stale temp files")
		}
	}

	set, err := subsystem.Open(ctx, opts)
	if err != nil {
		return err
	}
	log.WithField("backend", set.Backend().String()).
		WithField("interval", opts.Interval.String()).
		Info("serving")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := &Session{set: set, opts: opts}
	if cmd.Bool("console") {
		err = runConsole(ctx, cmd, console)
	} else {
		<-ctx.Done()
	}

	// The serve context may be cancelled already; the final flush still runs.
	if cerr := set.Close(context.WithoutCancel(ctx)); cerr != nil {
		err = errors.Join(err, fmt.Errorf("final flush failed: %w", cerr))
	}
	return err
}

// runConsole executes one command per input line until quit, end of input,
// or cancellation.
func runConsole(ctx context.Context, cmd *cli.Command, sess *Session) error {
	in := cmd.Root().Reader
	if in == nil {
		in = os.Stdin
	}
	out := Stdout(cmd)
	errOut := cmd.Root().ErrWriter
	if errOut == nil {
		errOut = os.Stderr
	}

	lines := make(chan string)
	go readLines(ctx, in, lines)

	m := GetMeta(cmd)
	m.Console = true

	for {
		fmt.Fprint(out, consolePrompt)
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = l
		}

		args, err := SplitLine(line)
		if err != nil {
			fmt.Fprintln(errOut, err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}

		m.Args = append([]string{"leobot"}, args...)
		app := NewConsoleApp(m, sess, out, errOut)
		if err := app.Run(ctx, m.Args); err != nil {
			fmt.Fprintln(errOut, err)
		}
	}
}

func readLines(ctx context.Context, r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("console input failed")
	}
}

// SplitLine breaks a console line into arguments. Single or double quotes
// group words; a backslash escapes the next rune outside single quotes.
func SplitLine(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inArg   bool
		quote   rune
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped, inArg = true, true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote, inArg = r, true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if quote != 0 || escaped {
		return nil, errors.New("unterminated quote or escape")
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args, nil
}

func ServeCommandBuilder(meta meta.Meta, sess *Session) *cli.Command {
	return (&CommandBuilder{
		Name:      "serve",
		Usage:     "keep the cache open with periodic flushing and an admin console",
		UsageText: "leobot serve [--no-console]",
		Description: "Loads records on demand, flushes them every --interval and runs\n" +
			"one command per console line against the shared cache. Type quit\n" +
			"or send SIGINT/SIGTERM to stop; a final flush runs on the way out.",
		Flags: []cli.Flag{
			&cli.BoolWithInverseFlag{
				Name:  "console",
				Usage: "read commands from standard input",
				Value: true,
			},
		},
		NoOutput: true,
		Action:   ServeCommandAction,
		Meta:     meta,
		Session:  sess,
	}).Build()
}
