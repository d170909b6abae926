// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/staranto/leobotgo/internal/backend"
)

// Failure ties an error to the record it happened on.
type Failure struct {
	Ref backend.Ref
	Err error
}

func (f Failure) Error() string {
	return f.Ref.String() + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }

// FlushReport is the outcome of one flush pass.
type FlushReport struct {
	Succeeded []backend.Ref
	Failed    []Failure
	Duration  time.Duration
}

func (r FlushReport) Total() int { return len(r.Succeeded) + len(r.Failed) }

func (r FlushReport) OK() bool { return len(r.Failed) == 0 }

// Err joins the per-entity failures, or returns nil.
func (r FlushReport) Err() error {
	return joinFailures(r.Failed)
}

// String renders the operator summary, e.g.
// "2/3 entities flushed successfully, with failures: userdata:1/2: ...".
func (r FlushReport) String() string {
	msg := fmt.Sprintf("%s/%s entities flushed successfully",
		humanize.Comma(int64(len(r.Succeeded))),
		humanize.Comma(int64(r.Total())))
	if len(r.Failed) > 0 {
		msg += ", with failures: " + failureList(r.Failed)
	}
	return msg
}

// ReloadReport is the outcome of a reload pass.
type ReloadReport struct {
	Reloaded []backend.Ref
	Pruned   []backend.Ref
	Failed   []Failure
	Duration time.Duration
}

func (r ReloadReport) Total() int { return len(r.Reloaded) + len(r.Pruned) + len(r.Failed) }

func (r ReloadReport) OK() bool { return len(r.Failed) == 0 }

func (r ReloadReport) Err() error {
	return joinFailures(r.Failed)
}

func (r ReloadReport) String() string {
	msg := fmt.Sprintf("%s/%s entities reloaded successfully (%s reloaded, %s pruned)",
		humanize.Comma(int64(len(r.Reloaded)+len(r.Pruned))),
		humanize.Comma(int64(r.Total())),
		humanize.Comma(int64(len(r.Reloaded))),
		humanize.Comma(int64(len(r.Pruned))))
	if len(r.Failed) > 0 {
		msg += ", with failures: " + failureList(r.Failed)
	}
	return msg
}

func failureList(failed []Failure) string {
	parts := make([]string, 0, len(failed))
	for _, f := range failed {
		parts = append(parts, f.Error())
	}
	return strings.Join(parts, "; ")
}

func joinFailures(failed []Failure) error {
	if len(failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(failed))
	for _, f := range failed {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
