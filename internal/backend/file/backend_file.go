// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

// TempSuffix marks in-progress writes. Leftovers from an interrupted process
// carry it and are purged by datadir.PurgeTemp.
const TempSuffix = ".tmp"

// BackendFile stores each record as a JSON file beneath RootDir.
//
// Layout:
//
//	root/
//	  userdata/<scope>/<entity>.json
//	  configs/<scope>.json
type BackendFile struct {
	RootDir  string
	FileMode fs.FileMode
	DirMode  fs.FileMode
}

type Option func(*BackendFile)

// FromRootDir sets the data root. Defaults to the working directory.
func FromRootDir(dir string) Option {
	return func(be *BackendFile) { be.RootDir = dir }
}

func WithFileMode(mode fs.FileMode) Option {
	return func(be *BackendFile) { be.FileMode = mode }
}

func NewBackendFile(opts ...Option) *BackendFile {
	be := &BackendFile{
		RootDir:  ".",
		FileMode: 0o644, //nolint:mnd
		DirMode:  0o755, //nolint:mnd
	}
	for _, opt := range opts {
		opt(be)
	}
	return be
}

func (be *BackendFile) Path(ref backend.Ref) string {
	return filepath.Join(be.RootDir, filepath.FromSlash(ref.RelPath()))
}

func (be *BackendFile) Read(_ context.Context, ref backend.Ref) (*record.Record, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	p := be.Path(ref)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", backend.ErrNotFound, p)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", backend.ErrIO, p, err)
	}
	return backend.Decode(ref, data)
}

// Write encodes rec into a temp file next to the target, syncs it and renames
// it into place, so a concurrent reader sees either the old or the new file.
func (be *BackendFile) Write(_ context.Context, ref backend.Ref, rec *record.Record) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	data, err := backend.Encode(rec)
	if err != nil {
		return err
	}

	p := be.Path(ref)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, be.DirMode); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %v", backend.ErrIO, dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p)+".*"+TempSuffix)
	if err != nil {
		return fmt.Errorf("%w: failed to create temp file: %v", backend.ErrIO, err)
	}
	tmpPath := tmp.Name()

	cleanup := true
	defer func() {
		if cleanup {
			_ = tmp.Close()
			if err := os.Remove(tmpPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				log.WithError(err).Warnf("failed to remove temp file %s", tmpPath)
			}
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: failed to write %s: %v", backend.ErrIO, tmpPath, err)
	}
	if err := tmp.Chmod(be.FileMode); err != nil {
		return fmt.Errorf("%w: failed to chmod %s: %v", backend.ErrIO, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: failed to sync %s: %v", backend.ErrIO, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close %s: %v", backend.ErrIO, tmpPath, err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("%w: failed to rename %s: %v", backend.ErrIO, p, err)
	}
	cleanup = false

	log.Debugf("wrote %s (%d bytes)", p, len(data))
	return nil
}

func (be *BackendFile) Exists(_ context.Context, ref backend.Ref) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}
	info, err := os.Stat(be.Path(ref))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", backend.ErrIO, err)
	}
	return !info.IsDir(), nil
}

func (be *BackendFile) String() string {
	return "backend-file(" + be.RootDir + ")"
}
