// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package subsystem

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"

	"github.com/staranto/leobotgo/internal/admin"
	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/backend/file"
	"github.com/staranto/leobotgo/internal/backend/s3"
	"github.com/staranto/leobotgo/internal/scheduler"
	"github.com/staranto/leobotgo/internal/store"
)

// Backend names accepted by NewBackend.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// Options selects and configures the persistence backend and flush interval.
type Options struct {
	Backend  string
	DataDir  string
	Bucket   string
	Prefix   string
	Region   string
	Profile  string
	Endpoint string
	Interval time.Duration

	// MaxAttempts bounds S3 SDK retries of one request.
	MaxAttempts int
}

// NewBackend builds the backend named by opts.Backend. An empty name means
// the file backend.
func NewBackend(ctx context.Context, opts Options) (backend.Backend, error) {
	log.Debugf("NewBackend: opts: %+v", opts)

	switch opts.Backend {
	case "", BackendFile:
		if opts.DataDir == "" {
			return nil, errors.New("file backend requires a data directory")
		}
		return file.NewBackendFile(file.FromRootDir(opts.DataDir)), nil
	case BackendS3:
		be, err := s3.NewBackendS3(ctx,
			s3.WithBucket(opts.Bucket),
			s3.WithPrefix(opts.Prefix),
			s3.WithRegion(opts.Region),
			s3.WithProfile(opts.Profile),
			s3.WithEndpoint(opts.Endpoint),
			s3.WithMaxAttempts(opts.MaxAttempts),
		)
		if err != nil {
			return nil, err
		}
		return be, nil
	}

	return nil, fmt.Errorf("unknown backend %q (supported: %s, %s)", opts.Backend, BackendFile, BackendS3)
}

// Subsystem bundles the store for one kind with its flush scheduler and
// admin surface.
type Subsystem struct {
	*admin.Admin
	kind backend.Kind
}

// New builds the subsystem for kind on be and starts the periodic flush.
func New(kind backend.Kind, be backend.Backend, interval time.Duration) (*Subsystem, error) {
	if interval <= 0 {
		interval = scheduler.DefaultInterval
	}
	st := store.New(kind, be)
	sched := scheduler.New(kind.Name, interval, st)
	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("failed to start auto flush for %s: %w", kind.Name, err)
	}
	return &Subsystem{Admin: admin.New(st, sched), kind: kind}, nil
}

func (s *Subsystem) Kind() backend.Kind { return s.kind }

// Close stops the periodic flush and flushes one last time.
func (s *Subsystem) Close(ctx context.Context) store.FlushReport {
	return s.Shutdown(ctx)
}

// Set is the pair of subsystems the bot runs with, sharing one backend.
type Set struct {
	UserData *Subsystem
	Configs  *Subsystem
	backend  backend.Backend
}

// Open builds the backend from opts and both subsystems on top of it.
func Open(ctx context.Context, opts Options) (*Set, error) {
	be, err := NewBackend(ctx, opts)
	if err != nil {
		return nil, err
	}

	ud, err := New(backend.UserData, be, opts.Interval)
	if err != nil {
		return nil, err
	}
	cf, err := New(backend.Configs, be, opts.Interval)
	if err != nil {
		ud.Close(ctx)
		return nil, err
	}

	log.WithFields(log.Fields{"backend": be.String(), "interval": ud.Scheduler().Interval()}).
		Debug("subsystems opened")
	return &Set{UserData: ud, Configs: cf, backend: be}, nil
}

func (s *Set) Backend() backend.Backend { return s.backend }

func (s *Set) All() []*Subsystem {
	return []*Subsystem{s.UserData, s.Configs}
}

// ByName returns the subsystem for a kind name.
func (s *Set) ByName(name string) (*Subsystem, error) {
	kind, err := backend.KindByName(name)
	if err != nil {
		return nil, err
	}
	for _, sub := range s.All() {
		if sub.Kind() == kind {
			return sub, nil
		}
	}
	return nil, fmt.Errorf("no subsystem for %s", name)
}

// Close shuts down every subsystem and joins their final flush failures.
func (s *Set) Close(ctx context.Context) error {
	var errs []error
	for _, sub := range s.All() {
		if report := sub.Close(ctx); !report.OK() {
			errs = append(errs, fmt.Errorf("%s: %w", sub.Kind().Name, report.Err()))
		}
	}
	return errors.Join(errs...)
}
