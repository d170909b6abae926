// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/leobotgo/internal/command"
	"github.com/staranto/leobotgo/internal/config"
	mylog "github.com/staranto/leobotgo/internal/log"
	"github.com/staranto/leobotgo/internal/version"
)

var ctx = context.Background()

func main() {
	os.Exit(realMain())
}

func realMain() int {
	mylog.InitLogger()

	args := os.Args

	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "No command specified.")
		args = append(args, "--help")
	} else {
		args = mangleArguments(args)
	}

	// Short-circuit --version/-v.
	for _, a := range args {
		if a == "--version" || a == "-v" {
			fmt.Println(version.Version)
			return 0
		}
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	return 0
}

// mangleArguments expands an @set argument into the flags configured under
// <command>.<set> in the config file. Without an explicit @set, the
// <command>.defaults set is applied.
func mangleArguments(args []string) []string {
	// We know the first two args are going to be the executable and command.
	preamble := make([]string, 2)
	copy(preamble, args[:2])

	// Short-circuit for --help/-h. If help is requested, just keep the preamble
	// and add --help flag.
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return append(preamble, "--help")
		}
	}

	if strings.HasPrefix(args[1], "-") {
		return args
	}

	rest := make([]string, 0, len(args)-2)
	set := "defaults"
	for _, a := range args[2:] {
		if len(a) > 1 && strings.HasPrefix(a, "@") && set == "defaults" {
			set = a[1:]
			continue
		}
		rest = append(rest, a)
	}

	// Set flags go right after the command so positional args stay last.
	workingArgs := preamble
	setArgs, _ := config.GetStringSlice(args[1] + "." + set)
	for _, arg := range setArgs {
		workingArgs = append(workingArgs, strings.Fields(arg)...)
	}
	workingArgs = append(workingArgs, rest...)

	log.Debugf("set=%s, args=%v", set, workingArgs)
	return workingArgs
}
