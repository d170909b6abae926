// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package economy

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apex/log"

	"github.com/staranto/leobotgo/internal/backend"
	"github.com/staranto/leobotgo/internal/record"
	"github.com/staranto/leobotgo/internal/store"
)

const (
	DefaultPaydayAmount int64 = 500
	PaydayCooldown            = 24 * time.Hour

	economyKey    = "economy"
	creditsKey    = "credits"
	lastPaydayKey = "last_payday"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("amount must not be negative")
	ErrCooldown          = errors.New("payday on cooldown")
	ErrOverflow          = errors.New("balance out of range")
)

// Economy keeps per-user credit balances in the global scope of the user data
// store, under the "economy" object of each user record.
type Economy struct {
	store  *store.Store
	payday int64
}

type Option func(*Economy)

func WithPaydayAmount(amount int64) Option {
	return func(e *Economy) {
		if amount > 0 {
			e.payday = amount
		}
	}
}

func New(st *store.Store, opts ...Option) *Economy {
	e := &Economy{store: st, payday: DefaultPaydayAmount}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Economy) PaydayAmount() int64 { return e.payday }

// update runs fn on the user's economy object, creating the user record and
// the object when init is set. A present "economy" field that is not an object
// fails with backend.ErrMalformedRecord and the record is left alone.
func (e *Economy) update(ctx context.Context, user string, init bool, fn func(econ *record.Record) error) error {
	return e.store.Update(ctx, store.GlobalScope, user, init, func(r *record.Record) error {
		v, ok := r.Get(economyKey)
		if !ok {
			if !init {
				return store.ErrAbsent
			}
			econ := record.New()
			if err := fn(econ); err != nil {
				return err
			}
			r.Set(economyKey, record.ObjectValue(econ))
			return nil
		}
		econ, ok := v.AsRecord()
		if !ok {
			return fmt.Errorf("%w: user %s: %q is %s, not an object", backend.ErrMalformedRecord, user, economyKey, v.Kind())
		}
		return fn(econ)
	})
}

// credits reads the balance. A missing field reports false; a field that is
// not an integer fails with backend.ErrMalformedRecord.
func credits(econ *record.Record) (int64, bool, error) {
	v, ok := econ.Get(creditsKey)
	if !ok {
		return 0, false, nil
	}
	c, ok := v.AsInt()
	if !ok {
		return 0, false, fmt.Errorf("%w: %q is not an integer", backend.ErrMalformedRecord, creditsKey)
	}
	return c, true, nil
}

// credit adds a non-negative amount to c, refusing results past MaxInt64.
func credit(c, amount int64) (int64, error) {
	if c > 0 && amount > math.MaxInt64-c {
		return c, fmt.Errorf("%w: %d + %d", ErrOverflow, c, amount)
	}
	return c + amount, nil
}

// Balance returns the user's credits. With init set a missing account is
// opened with zero credits; without it the second result reports whether an
// account exists and nothing is created.
func (e *Economy) Balance(ctx context.Context, user string, init bool) (int64, bool, error) {
	var (
		bal int64
		has bool
	)
	err := e.update(ctx, user, init, func(econ *record.Record) error {
		c, ok, err := credits(econ)
		if err != nil {
			return err
		}
		if !ok {
			if !init {
				return nil
			}
			econ.Set(creditsKey, record.IntValue(0))
		}
		bal, has = c, true
		return nil
	})
	if errors.Is(err, store.ErrAbsent) {
		return 0, false, nil
	}
	return bal, has, err
}

// SetBalance overwrites the balance and returns the previous one, if any.
func (e *Economy) SetBalance(ctx context.Context, user string, amount int64) (old int64, had bool, err error) {
	err = e.update(ctx, user, true, func(econ *record.Record) error {
		var err error
		if old, had, err = credits(econ); err != nil {
			return err
		}
		econ.Set(creditsKey, record.IntValue(amount))
		return nil
	})
	return old, had, err
}

// Deposit adds amount and returns the new balance.
func (e *Economy) Deposit(ctx context.Context, user string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	var bal int64
	err := e.update(ctx, user, true, func(econ *record.Record) error {
		c, _, err := credits(econ)
		if err != nil {
			return err
		}
		if bal, err = credit(c, amount); err != nil {
			return err
		}
		econ.Set(creditsKey, record.IntValue(bal))
		return nil
	})
	return bal, err
}

// Withdraw removes amount and returns the new balance. An insufficient
// balance fails with ErrInsufficientFunds and leaves the account untouched.
func (e *Economy) Withdraw(ctx context.Context, user string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrInvalidAmount
	}
	var bal int64
	err := e.update(ctx, user, true, func(econ *record.Record) error {
		c, _, err := credits(econ)
		if err != nil {
			return err
		}
		if c < amount {
			bal = c
			return fmt.Errorf("%w: balance %d, requested %d", ErrInsufficientFunds, c, amount)
		}
		bal = c - amount
		econ.Set(creditsKey, record.IntValue(bal))
		return nil
	})
	return bal, err
}

// Add applies a signed adjustment, clamping the result at zero. It returns the
// old balance (if any) and the new one. A result past MaxInt64 fails with
// ErrOverflow.
func (e *Economy) Add(ctx context.Context, user string, delta int64) (old int64, had bool, bal int64, err error) {
	err = e.update(ctx, user, true, func(econ *record.Record) error {
		var err error
		if old, had, err = credits(econ); err != nil {
			return err
		}
		switch {
		case delta >= 0:
			if bal, err = credit(old, delta); err != nil {
				return err
			}
		case old < math.MinInt64-delta:
			bal = 0
		default:
			bal = max(old+delta, 0)
		}
		econ.Set(creditsKey, record.IntValue(bal))
		return nil
	})
	return old, had, bal, err
}

// PaydayResult describes a redeemed or refused payday.
type PaydayResult struct {
	Paid    int64
	Balance int64
	// Next is the wait until the following payday.
	Next time.Duration
}

// Payday credits the payday amount once per PaydayCooldown. On cooldown it
// returns ErrCooldown and the remaining wait in the result; the account is
// not modified.
func (e *Economy) Payday(ctx context.Context, user string, now time.Time) (PaydayResult, error) {
	now = now.UTC()
	var res PaydayResult
	err := e.update(ctx, user, true, func(econ *record.Record) error {
		if s, ok := econ.String(lastPaydayKey); ok {
			last, perr := time.Parse(time.RFC3339Nano, s)
			if perr != nil {
				log.WithError(perr).WithField("user", user).Warn("ignoring unparsable last payday")
			} else if wait := last.Add(PaydayCooldown).Sub(now); wait > 0 {
				res.Balance, _, _ = credits(econ)
				res.Next = wait
				return ErrCooldown
			}
		}

		c, _, err := credits(econ)
		if err != nil {
			return err
		}
		if res.Balance, err = credit(c, e.payday); err != nil {
			res.Balance = c
			return err
		}
		res.Paid = e.payday
		res.Next = PaydayCooldown
		econ.Set(creditsKey, record.IntValue(res.Balance))
		econ.Set(lastPaydayKey, record.StringValue(now.Format(time.RFC3339Nano)))
		return nil
	})
	return res, err
}

// FormatWait renders a wait the way payday messages show it, e.g. "23h 59m 5s".
func FormatWait(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	return fmt.Sprintf("%dh %dm %ds", h, m, d/time.Second)
}
