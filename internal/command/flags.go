// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/config"
	"github.com/staranto/leobotgo/internal/scheduler"
	"github.com/staranto/leobotgo/internal/subsystem"
)

func init() {
	cfg, _ = config.Load()
}

var cfg config.Type

// NewRootFlags returns the flags that select and configure the persistence
// backend. They apply to every command.
func NewRootFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "data-dir",
			Aliases: []string{"d"},
			Usage:   "data directory for the file backend",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LEOBOT_DATA_DIR"),
				yaml.YAML("data_dir", altsrc.StringSourcer(cfg.Source)),
			),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "persistence backend (file, s3)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LEOBOT_BACKEND"),
				yaml.YAML("backend", altsrc.StringSourcer(cfg.Source)),
			),
			Value: subsystem.BackendFile,
			Validator: func(value string) error {
				return FlagValidators(value, BackendValidator)
			},
		},
		NewS3Flag("bucket", "S3 bucket holding the records", "LEOBOT_S3_BUCKET"),
		NewS3Flag("prefix", "key prefix inside the S3 bucket", "LEOBOT_S3_PREFIX"),
		NewS3Flag("region", "AWS region of the S3 bucket", "AWS_REGION"),
		NewS3Flag("profile", "AWS shared config profile", "AWS_PROFILE"),
		NewS3Flag("endpoint", "S3 endpoint override, for S3 compatible stores", "LEOBOT_S3_ENDPOINT"),
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "auto flush interval",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("LEOBOT_FLUSH_INTERVAL"),
				yaml.YAML("flush.interval", altsrc.StringSourcer(cfg.Source)),
			),
			Value: scheduler.DefaultInterval,
			Validator: func(value time.Duration) error {
				return FlagValidators(value, PositiveDurationValidator)
			},
		},
	}
}

// NewS3Flag constructs a string flag for an S3 setting, sourced from env and
// the s3 section of the config file.
func NewS3Flag(name, usage, env string) *cli.StringFlag {
	flag := &cli.StringFlag{
		Name:     "s3-" + name,
		Usage:    usage,
		Category: "s3",
		Sources:  cli.NewValueSourceChain(cli.EnvVar(env)),
	}
	return NameSpacedValueChainFlagFromConfigFile("s3", name, cfg.Source, flag)
}

// NewOutputFlags returns the presentation flags, namespaced to a command in
// the config file.
func NewOutputFlags(ns string) []cli.Flag {
	return []cli.Flag{
		&cli.BoolWithInverseFlag{
			Name:    "color",
			Aliases: []string{"c"},
			Usage:   "enable colored text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"color", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("color", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
		&cli.StringFlag{
			Name:    "filter",
			Aliases: []string{"f"},
			Usage:   "comma-separated list of filters to apply to results",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"output", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("output", altsrc.StringSourcer(cfg.Source)),
			),
			Value: "text",
			Validator: func(value string) error {
				return FlagValidators(value, OutputValidator)
			},
		},
		&cli.StringFlag{
			Name:    "sort",
			Aliases: []string{"s"},
			Usage:   "comma-separated list of columns to sort the results by",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"sort", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolWithInverseFlag{
			Name:    "titles",
			Aliases: []string{"t"},
			Usage:   "show titles with text output",
			Sources: cli.NewValueSourceChain(
				yaml.YAML(ns+"."+"titles", altsrc.StringSourcer(cfg.Source)),
				yaml.YAML("titles", altsrc.StringSourcer(cfg.Source)),
			),
			Value: false,
		},
	}
}

// NewKindFlag selects the store a record command works on.
func NewKindFlag(all bool) *cli.StringFlag {
	flag := &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   "store kind (userdata, configs)",
		Value:   backend.UserData.Name,
		Validator: func(value string) error {
			return FlagValidators(value, KindValidator(all))
		},
	}
	if all {
		flag.Usage = "store kind (userdata, configs, all)"
		flag.Value = "all"
	}
	return flag
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, key string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+key, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
