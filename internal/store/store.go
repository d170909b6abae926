// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
)

// GlobalScope holds data not tied to any guild. Guild scopes are decimal ids
// so the sentinel cannot collide with one.
const GlobalScope = "global"

var (
	// ErrAbsent is returned by Update when the record does not exist and
	// initialization was not requested.
	ErrAbsent = errors.New("record absent")
	// ErrInvalidScope rejects scopes that are neither GlobalScope nor a
	// decimal guild id.
	ErrInvalidScope = errors.New("invalid scope")
	// ErrFlushIncomplete is returned by ClearCache when the flush-first pass
	// failed for some entities; the cache is left intact.
	ErrFlushIncomplete = errors.New("flush incomplete, cache not cleared")

	errStale = errors.New("load raced with clear or reload")
)

// Scope maps a guild id to its scope. An empty id selects GlobalScope.
func Scope(guildID string) string {
	if guildID == "" {
		return GlobalScope
	}
	return guildID
}

// ValidateScope accepts GlobalScope or a non-empty string of ASCII digits.
func ValidateScope(scope string) error {
	if scope == GlobalScope {
		return nil
	}
	if scope == "" {
		return fmt.Errorf("%w: empty", ErrInvalidScope)
	}
	for _, c := range scope {
		if c < '0' || c > '9' {
			return fmt.Errorf("%w: %q", ErrInvalidScope, scope)
		}
	}
	return nil
}

// Store is the write-back cache for one store kind: scope -> entity -> record.
//
// Records are loaded lazily and stay authoritative until flushed, cleared or
// reloaded; nothing is evicted automatically. Get returns the live cached
// record. Mutate it through Update, which holds the store lock, so flush
// snapshots never observe a half applied change.
type Store struct {
	kind backend.Kind
	be   backend.Backend

	mu    sync.Mutex
	cache map[string]map[string]*record.Record
	gen   uint64

	// flushMu serializes flush, reload and clear passes. Always taken
	// before mu.
	flushMu sync.Mutex
	loads   singleflight.Group
}

func New(kind backend.Kind, be backend.Backend) *Store {
	return &Store{
		kind:  kind,
		be:    be,
		cache: map[string]map[string]*record.Record{},
	}
}

func (s *Store) Kind() backend.Kind { return s.kind }

func (s *Store) Backend() backend.Backend { return s.be }

// Ref builds the reference for (scope, entity). Flat kinds ignore entity and
// key the record by scope alone.
func (s *Store) Ref(scope, entity string) (backend.Ref, error) {
	if err := ValidateScope(scope); err != nil {
		return backend.Ref{}, err
	}
	if !s.kind.Nested {
		entity = scope
	}
	ref := backend.Ref{Kind: s.kind, Scope: scope, Entity: entity}
	return ref, ref.Validate()
}

type loadResult struct {
	rec *record.Record
	gen uint64
}

// Get returns the cached record for (scope, entity), loading it on a miss.
// When nothing is stored and init is set, an empty record is cached and
// returned; without init the second result is false and the cache is left
// untouched. Concurrent misses on one key share a single backend read, which
// is not cancelled when one of the waiting callers gives up.
func (s *Store) Get(ctx context.Context, scope, entity string, init bool) (*record.Record, bool, error) {
	ref, err := s.Ref(scope, entity)
	if err != nil {
		return nil, false, err
	}

	for {
		s.mu.Lock()
		if rec, ok := s.lookup(ref); ok {
			s.mu.Unlock()
			return rec, true, nil
		}
		s.mu.Unlock()

		// The load outlives any single caller; each caller only stops waiting
		// on its own cancellation.
		ch := s.loads.DoChan(ref.String(), func() (any, error) {
			return s.load(context.WithoutCancel(ctx), ref)
		})
		var sf singleflight.Result
		select {
		case sf = <-ch:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
		v, err := sf.Val, sf.Err
		if sf.Shared {
			log.Debugf("shared load for %s", ref)
		}
		if errors.Is(err, errStale) {
			continue
		}

		res, _ := v.(loadResult)
		switch {
		case err == nil:
			return res.rec, true, nil
		case !errors.Is(err, backend.ErrNotFound):
			return nil, false, err
		case !init:
			return nil, false, nil
		}

		s.mu.Lock()
		if s.gen != res.gen {
			s.mu.Unlock()
			continue
		}
		rec, ok := s.lookup(ref)
		if !ok {
			rec = record.New()
			s.insert(ref, rec)
			log.Debugf("initialized %s", ref)
		}
		s.mu.Unlock()
		return rec, true, nil
	}
}

// load reads ref from the backend outside the lock and inserts it unless the
// cache was cleared or reloaded meanwhile. The generation it observed is
// returned alongside ErrNotFound so callers can initialize safely.
func (s *Store) load(ctx context.Context, ref backend.Ref) (loadResult, error) {
	s.mu.Lock()
	start := s.gen
	if rec, ok := s.lookup(ref); ok {
		s.mu.Unlock()
		return loadResult{rec: rec, gen: start}, nil
	}
	s.mu.Unlock()

	rec, err := s.be.Read(ctx, ref)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != start {
		return loadResult{}, errStale
	}
	if cached, ok := s.lookup(ref); ok {
		return loadResult{rec: cached, gen: start}, nil
	}
	if err != nil {
		return loadResult{gen: start}, err
	}
	s.insert(ref, rec)
	log.Debugf("loaded %s from %s", ref, s.be.Path(ref))
	return loadResult{rec: rec, gen: start}, nil
}

// Set replaces the cached record. It does not persist.
func (s *Store) Set(scope, entity string, rec *record.Record) error {
	ref, err := s.Ref(scope, entity)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = record.New()
	}
	s.mu.Lock()
	s.insert(ref, rec)
	s.mu.Unlock()
	return nil
}

// Update runs fn against the live cached record while holding the store lock.
// With init unset and no stored record it returns ErrAbsent. fn must not call
// back into the Store.
func (s *Store) Update(ctx context.Context, scope, entity string, init bool, fn func(*record.Record) error) error {
	for {
		rec, ok, err := s.Get(ctx, scope, entity, init)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAbsent
		}

		ref, _ := s.Ref(scope, entity)
		s.mu.Lock()
		cur, ok := s.lookup(ref)
		if !ok || cur != rec {
			// Cleared, reloaded or replaced between Get and here.
			s.mu.Unlock()
			continue
		}
		err = fn(cur)
		s.mu.Unlock()
		return err
	}
}

// Len returns the number of cached records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, entities := range s.cache {
		n += len(entities)
	}
	return n
}

// Refs lists the cached records in scope, entity order.
func (s *Store) Refs() []backend.Ref {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refsLocked()
}

// Snapshot returns a deep copy of the cached record, if any.
func (s *Store) Snapshot(scope, entity string) (*record.Record, bool) {
	ref, err := s.Ref(scope, entity)
	if err != nil {
		return nil, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(ref)
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

type entry struct {
	ref backend.Ref
	rec *record.Record
}

// Flush writes every cached record to the backend. Records are copied under
// the lock and written after releasing it. A failed write is recorded in the
// report and does not stop the others.
func (s *Store) Flush(ctx context.Context) FlushReport {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	return s.writeAll(ctx, snap)
}

// ReloadAll re-reads every cached record from the backend. Records whose
// backing data vanished are evicted, others are replaced by what is stored,
// discarding unflushed edits. Read failures are reported and leave the cached
// record in place.
func (s *Store) ReloadAll(ctx context.Context) ReloadReport {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var report ReloadReport
	for _, ref := range s.refsLocked() {
		rec, err := s.be.Read(ctx, ref)
		switch {
		case err == nil:
			s.insert(ref, rec)
			report.Reloaded = append(report.Reloaded, ref)
		case errors.Is(err, backend.ErrNotFound):
			s.remove(ref)
			report.Pruned = append(report.Pruned, ref)
		default:
			report.Failed = append(report.Failed, Failure{Ref: ref, Err: err})
			log.WithError(err).WithField("ref", ref.String()).Warn("reload failed")
		}
	}
	s.gen++
	report.Duration = time.Since(start)

	log.WithFields(log.Fields{
		"kind":     s.kind.Name,
		"reloaded": len(report.Reloaded),
		"pruned":   len(report.Pruned),
		"failed":   len(report.Failed),
	}).Info("reload complete")
	return report
}

// ClearCache empties the cache so later reads load from the backend again.
// With flushFirst, the cache is flushed under the same lock; if any entity
// fails to persist the cache is kept and ErrFlushIncomplete is returned.
func (s *Store) ClearCache(ctx context.Context, flushFirst bool) (FlushReport, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	var report FlushReport
	if flushFirst {
		report = s.writeAll(ctx, s.snapshotLocked())
		if !report.OK() {
			return report, fmt.Errorf("%w: %s", ErrFlushIncomplete, report)
		}
	}

	cleared := 0
	for _, entities := range s.cache {
		cleared += len(entities)
	}
	s.cache = map[string]map[string]*record.Record{}
	s.gen++

	log.WithFields(log.Fields{"kind": s.kind.Name, "cleared": cleared}).Info("cache cleared")
	return report, nil
}

func (s *Store) writeAll(ctx context.Context, snap []entry) FlushReport {
	start := time.Now()
	var report FlushReport
	for _, e := range snap {
		if err := s.be.Write(ctx, e.ref, e.rec); err != nil {
			report.Failed = append(report.Failed, Failure{Ref: e.ref, Err: err})
			log.WithError(err).WithField("ref", e.ref.String()).Warn("flush failed")
			continue
		}
		report.Succeeded = append(report.Succeeded, e.ref)
	}
	report.Duration = time.Since(start)

	log.WithFields(log.Fields{
		"kind":      s.kind.Name,
		"succeeded": len(report.Succeeded),
		"failed":    len(report.Failed),
		"took":      report.Duration,
	}).Debug("flush complete")
	return report
}

func (s *Store) snapshotLocked() []entry {
	refs := s.refsLocked()
	snap := make([]entry, 0, len(refs))
	for _, ref := range refs {
		rec, _ := s.lookup(ref)
		snap = append(snap, entry{ref: ref, rec: rec.Clone()})
	}
	return snap
}

func (s *Store) refsLocked() []backend.Ref {
	var refs []backend.Ref
	for scope, entities := range s.cache {
		for entity := range entities {
			refs = append(refs, backend.Ref{Kind: s.kind, Scope: scope, Entity: entity})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Scope == refs[j].Scope {
			return refs[i].Entity < refs[j].Entity
		}
		return refs[i].Scope < refs[j].Scope
	})
	return refs
}

func (s *Store) lookup(ref backend.Ref) (*record.Record, bool) {
	rec, ok := s.cache[ref.Scope][ref.Entity]
	return rec, ok
}

func (s *Store) insert(ref backend.Ref, rec *record.Record) {
	entities, ok := s.cache[ref.Scope]
	if !ok {
		entities = map[string]*record.Record{}
		s.cache[ref.Scope] = entities
	}
	entities[ref.Entity] = rec
}

func (s *Store) remove(ref backend.Ref) {
	entities, ok := s.cache[ref.Scope]
	if !ok {
		return
	}
	delete(entities, ref.Entity)
	if len(entities) == 0 {
		delete(s.cache, ref.Scope)
	}
}
