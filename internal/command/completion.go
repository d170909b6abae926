// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/meta"
)

const bashCompletionScript = `# bash completion for leobot
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_leobot()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "get set diff list credits flush clear-cache reload-all flush-auto stats purge-temp serve completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local output="--color -c --filter -f --output -o --sort -s --titles -t"

    case "$cmd" in
        get)
            local opts="$output --kind -k --field"
            ;;
        set)
            local opts="$output --kind -k --delete"
            ;;
        diff)
            local opts="--kind -k"
            ;;
        list|flush|reload-all)
            local opts="$output --kind -k"
            ;;
        clear-cache)
            local opts="$output --kind -k --flush --no-flush"
            ;;
        flush-auto)
            COMPREPLY=( $(compgen -W "on off --kind -k" -- "$cur") )
            return 0
            ;;
        credits)
            COMPREPLY=( $(compgen -W "balance deposit withdraw set add payday" -- "$cur") )
            return 0
            ;;
        stats)
            local opts="$output"
            ;;
        purge-temp)
            local opts="--hours"
            ;;
        serve)
            local opts="--console --no-console --interval"
            ;;
        completion)
            COMPREPLY=( $(compgen -W "bash zsh" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$output"
            ;;
    esac

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
            return 0
            ;;
        --kind|-k)
            COMPREPLY=( $(compgen -W "userdata configs all" -- "$cur") )
            return 0
            ;;
        --backend|-b)
            COMPREPLY=( $(compgen -W "file s3" -- "$cur") )
            return 0
            ;;
        --data-dir|-d)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
    esac

    COMPREPLY=( $(compgen -W "$opts --backend -b --data-dir -d" -- "$cur") )
    return 0
}

complete -F _leobot leobot
`

const zshCompletionScript = `#compdef leobot

_leobot() {
  local -a cmds
  cmds=(
    'get:show a stored record'
    'set:change fields of a record'
    'diff:compare a cached record with its stored copy'
    'list:list cached records and their status'
    'credits:manage user credit balances'
    'flush:write every cached record to the backend'
    'clear-cache:empty the cache'
    'reload-all:replace cached records with their stored copies'
    'flush-auto:start or stop the periodic flush'
    'stats:summarize stored records'
    'purge-temp:remove stale temp files'
    'serve:run the cache with an admin console'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-b --backend)'{-b,--backend}'[persistence backend]:backend:(file s3)'
  '(-d --data-dir)'{-d,--data-dir}'[data directory]:dir:_directories'
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '(-s --sort)'{-s,--sort}'[sort columns]:columns'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'leobot commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    get)
      _arguments -C $common \
        '(-k --kind)'{-k,--kind}'[store kind]:kind:(userdata configs)' \
        '--field[gjson path of a single field]:path'
      ;;
    set)
      _arguments -C $common \
        '(-k --kind)'{-k,--kind}'[store kind]:kind:(userdata configs)' \
        '*--delete[field to remove]:field'
      ;;
    list|flush|reload-all|clear-cache|flush-auto)
      _arguments -C $common \
        '(-k --kind)'{-k,--kind}'[store kind]:kind:(userdata configs all)'
      ;;
    credits)
      _arguments '1: :((balance deposit withdraw set add payday))'
      ;;
    purge-temp)
      _arguments -C '--hours[minimum age in hours]:hours'
      ;;
    serve)
      _arguments -C $common '--no-console[no console]' '--interval[flush interval]:interval'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _leobot leobot
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	w := Stdout(cmd)
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: leobot completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "leobot completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
