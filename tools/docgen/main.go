// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
	"github.com/urfave/cli/v3"

	"github.com/staranto/leobotgo/internal/command"
)

// Doc generator:
// - Renders docs/commands/<cmd>.md from the leobot command tree, merging the
//   quick examples below
// - Generates:
//   - docs/man/share/man1/leobot-<cmd>.1 via md2man (convert full markdown)
//   - docs/tldr/leobot-<cmd>.md using the Quick examples block and short description

var quickExamples = map[string][]example{
	"get": {
		{"Show a user's record in a guild", "leobot get 123456789 42"},
		{"Show a single field of a global record", "leobot get global 42 --field economy.credits"},
		{"Show a guild config as YAML", "leobot get --kind configs 123456789 -o yaml"},
	},
	"set": {
		{"Set fields, keeping JSON types", "leobot set 123456789 42 level=3 nick='\"leo\"'"},
		{"Remove a field", "leobot set 123456789 42 --delete nick"},
	},
	"diff": {
		{"Compare a cached record with its stored copy", "leobot diff global 42"},
	},
	"list": {
		{"List modified records, sorted by scope", "leobot list --filter status=modified --sort scope"},
	},
	"credits": {
		{"Show a balance", "leobot credits balance 42"},
		{"Redeem the daily payday", "leobot credits payday 42"},
		{"Set the balance of several users", "leobot credits set 42 43 1000"},
	},
	"flush": {
		{"Flush both stores", "leobot flush"},
		{"Flush user data and report as JSON", "leobot flush --kind userdata -o json"},
	},
	"clear-cache": {
		{"Flush, then empty the cache", "leobot clear-cache"},
		{"Drop unsaved changes", "leobot clear-cache --no-flush"},
	},
	"reload-all": {
		{"Re-read every cached record", "leobot reload-all"},
	},
	"flush-auto": {
		{"Stop the periodic flush from the console", "flush-auto off"},
	},
	"stats": {
		{"Summarize stored records", "leobot stats --titles"},
	},
	"purge-temp": {
		{"Remove temp files older than an hour", "leobot purge-temp --hours 1"},
	},
	"serve": {
		{"Serve with a one minute flush interval", "leobot serve --interval 1m"},
		{"Serve against S3 without a console", "leobot --backend s3 --s3-bucket leobot-data serve --no-console"},
	},
	"completion": {
		{"Install bash completion", "leobot completion bash > /etc/bash_completion.d/leobot"},
	},
}

func main() {
	var (
		repoRoot           string
		commandsDir        string
		manOutDir          string
		tldrOutDir         string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	commandsDir = filepath.Join(repoRoot, "docs", "commands")
	manOutDir = filepath.Join(repoRoot, "docs", "man", "share", "man1")
	tldrOutDir = filepath.Join(repoRoot, "docs", "tldr")

	for _, dir := range []string{commandsDir, manOutDir, tldrOutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("creating output dir %s: %v", dir, err)
		}
	}

	app, err := command.InitApp(context.Background(), []string{"leobot"})
	if err != nil {
		fatalf("building command tree: %v", err)
	}

	var processed int
	for _, c := range app.Commands {
		if c.Hidden {
			continue
		}
		raw := []byte(renderMarkdown(c))
		mdPath := filepath.Join(commandsDir, c.Name+".md")
		if err := writeFileIfChanged(mdPath, raw, writeOnlyIfChanged); err != nil {
			fatalf("writing markdown for %s: %v", c.Name, err)
		}

		// Generate man page from full markdown
		manBytes := md2man.Render(raw)
		manPath := filepath.Join(manOutDir, fmt.Sprintf("leobot-%s.1", c.Name))
		if err := writeFileIfChanged(manPath, manBytes, writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", c.Name, err)
		}

		// Generate TLDR page from short description + quick examples
		title, shortDesc := extractTitleAndShortDesc(string(raw))
		examples := extractQuickExamples(string(raw))
		tldr := buildTLDR(c.Name, title, shortDesc, examples)
		tldrPath := filepath.Join(tldrOutDir, fmt.Sprintf("leobot-%s.md", c.Name))
		if err := writeFileIfChanged(tldrPath, []byte(tldr), writeOnlyIfChanged); err != nil {
			fatalf("writing TLDR for %s: %v", c.Name, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no commands found")
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

// renderMarkdown lays a command out in the sections extractTitleAndShortDesc
// and extractQuickExamples read back.
func renderMarkdown(c *cli.Command) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# leobot %s\n\n", c.Name)
	b.WriteString("## Short description\n\n")
	b.WriteString(capitalize(c.Usage) + ".\n\n")

	if c.UsageText != "" {
		b.WriteString("## Usage\n\n```\n" + c.UsageText + "\n```\n\n")
	}
	if c.Description != "" {
		b.WriteString("## Description\n\n" + c.Description + "\n\n")
	}

	if len(c.Commands) > 0 {
		b.WriteString("## Subcommands\n\n")
		for _, sub := range c.Commands {
			fmt.Fprintf(&b, "- `%s`: %s\n", sub.Name, sub.Usage)
		}
		b.WriteString("\n")
	}

	if len(c.Flags) > 0 {
		b.WriteString("## Flags\n\n")
		for _, f := range c.Flags {
			names := f.Names()
			for i, n := range names {
				if len(n) == 1 {
					names[i] = "-" + n
				} else {
					names[i] = "--" + n
				}
			}
			usage := ""
			if u, ok := f.(cli.DocGenerationFlag); ok {
				usage = u.GetUsage()
			}
			fmt.Fprintf(&b, "- `%s`: %s\n", strings.Join(names, ", "), usage)
		}
		b.WriteString("\n")
	}

	if exs := quickExamples[c.Name]; len(exs) > 0 {
		b.WriteString("## Quick examples\n\n```\n")
		for _, ex := range exs {
			b.WriteString("# " + ex.Desc + "\n" + ex.Cmd + "\n\n")
		}
		b.WriteString("```\n")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

var h1Re = regexp.MustCompile(`(?m)^#\s+(.+)$`)

func extractTitleAndShortDesc(md string) (title, short string) {
	if m := h1Re.FindStringSubmatch(md); m != nil {
		title = strings.TrimSpace(m[1])
	}
	idx := strings.Index(strings.ToLower(md), "short description")
	if idx >= 0 {
		rest := md[idx:]
		if nl := strings.Index(rest, "\n"); nl >= 0 {
			rest = rest[nl+1:]
		}
		var b strings.Builder
		for _, ln := range strings.Split(rest, "\n") {
			if strings.TrimSpace(ln) == "" {
				if b.Len() > 0 {
					break
				}
				continue
			}
			if strings.HasPrefix(ln, "#") {
				break
			}
			b.WriteString(strings.TrimSpace(ln))
			b.WriteString(" ")
		}
		short = strings.TrimSpace(b.String())
	}
	if short == "" && title != "" {
		short = title + "."
	}
	return
}

type example struct {
	Desc string
	Cmd  string
}

func extractQuickExamples(md string) []example {
	// Find the "Quick examples" section; capture the first fenced code block after it
	idx := strings.Index(strings.ToLower(md), "quick examples")
	if idx < 0 {
		return nil
	}
	rest := md[idx:]
	fence := "```"
	fenceStart := strings.Index(rest, fence)
	if fenceStart < 0 {
		return nil
	}
	rest = rest[fenceStart+len(fence):]
	fenceEnd := strings.Index(rest, fence)
	if fenceEnd < 0 {
		return nil
	}

	var exs []example
	var cur example
	for _, ln := range strings.Split(rest[:fenceEnd], "\n") {
		s := strings.TrimSpace(ln)
		if s == "" {
			continue
		}
		if strings.HasPrefix(s, "#") {
			cur.Desc = strings.TrimSpace(strings.TrimPrefix(s, "#"))
			continue
		}
		cur.Cmd = s
		if cur.Desc == "" {
			cur.Desc = "Example"
		}
		exs = append(exs, cur)
		cur = example{}
	}
	return exs
}

func buildTLDR(cmd, title, short string, exs []example) string {
	var b strings.Builder
	b.WriteString("# leobot-" + cmd + "\n\n")
	switch {
	case short != "":
		b.WriteString("> " + short + "\n")
	case title != "":
		b.WriteString("> " + title + "\n")
	default:
		b.WriteString("> leobot " + cmd + "\n")
	}
	b.WriteString("> More information: https://github.com/staranto/leobotgo.\n\n")

	if len(exs) == 0 {
		b.WriteString("- Show help for the command:\n\n")
		b.WriteString("`leobot " + cmd + " --help`\n")
		return b.String()
	}

	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + ex.Desc + ":\n\n")
		b.WriteString("`" + strings.Join(strings.Fields(ex.Cmd), " ") + "`\n")
	}
	return b.String()
}
