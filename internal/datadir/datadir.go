// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package datadir

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/backend/file"
)

// Dir resolves the base data directory.
// Precedence:
//  1. LEOBOT_DATA_DIR, if set and non-empty
//  2. XDG_DATA_HOME/leobot
//  3. $HOME/.local/share/leobot
//
// Returns ("", false) if a base cannot be resolved.
func Dir() (string, bool) {
	if d, ok := os.LookupEnv("LEOBOT_DATA_DIR"); ok && d != "" {
		return d, true
	}
	if d, ok := os.LookupEnv("XDG_DATA_HOME"); ok && d != "" {
		return filepath.Join(d, "leobot"), true
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".local", "share", "leobot"), true
	}
	return "", false
}

// EnsureBaseDir creates base and the directory of every store kind beneath it.
func EnsureBaseDir(base string) error {
	for _, kind := range []backend.Kind{backend.UserData, backend.Configs} {
		if err := os.MkdirAll(filepath.Join(base, kind.Root), 0o755); err != nil { //nolint:mnd
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return nil
}

// PurgeTemp removes temp files left behind by interrupted writes that are
// older than the provided number of hours. If hours <= 0 it is a no-op.
// It returns the number of files removed.
func PurgeTemp(base string, hours int) (int, error) {
	if hours <= 0 {
		log.Debug("temp file purge disabled")
		return 0, nil
	}
	maxAge := time.Duration(hours) * time.Hour
	removed := 0
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == base {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), file.TempSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil || time.Since(info.ModTime()) <= maxAge {
			return nil
		}
		if err := os.Remove(path); err == nil {
			removed++
			log.Debugf("removed temp file %s", path)
		} else {
			log.WithError(err).Warnf("failed to remove temp file %s", path)
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to purge temp files: %w", err)
	}
	return removed, nil
}

// Usage summarizes the stored records of one kind.
type Usage struct {
	Kind    string
	Records int
	Bytes   int64
}

// Stat walks base and totals the records of every kind.
func Stat(base string) ([]Usage, error) {
	var out []Usage
	for _, kind := range []backend.Kind{backend.UserData, backend.Configs} {
		u := Usage{Kind: kind.Name}
		root := filepath.Join(base, kind.Root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) && path == root {
					return filepath.SkipDir
				}
				return err
			}
			if d.IsDir() || filepath.Ext(d.Name()) != ".json" {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			u.Records++
			u.Bytes += info.Size()
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", kind.Name, err)
		}
		out = append(out, u)
	}
	return out, nil
}
