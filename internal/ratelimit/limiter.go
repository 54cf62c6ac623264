// SPDX-License-Identifier: MIT

// Package ratelimit implements a fixed-window request limiter persisted in
// the key-value store and keyed by a hashed client identifier.
package ratelimit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/kv"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
)

const (
	DefaultPrefix      = "rate-limit"
	DefaultMaxRequests = 5
	DefaultWindow      = 60 * time.Second
)

// Options configures a single Limit call. Zero fields take the limiter defaults.
type Options struct {
	MaxRequests int
	Window      time.Duration
	Prefix      string
}

// Result is the outcome of a Limit call. Reset is in epoch milliseconds.
type Result struct {
	Success   bool  `json:"success"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	Reset     int64 `json:"reset"`
}

// Record is the persisted window state.
type Record struct {
	Count   int   `json:"count"`
	ResetAt int64 `json:"resetAt"` // epoch milliseconds
}

// Limiter applies fixed-window limits. It holds no per-client state in
// process; all window state lives in the store.
type Limiter struct {
	store    kv.Store
	defaults Options
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock overrides the limiter clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithDefaults sets the options used when a call leaves fields unset.
func WithDefaults(o Options) Option {
	return func(l *Limiter) {
		if o.MaxRequests > 0 {
			l.defaults.MaxRequests = o.MaxRequests
		}
		if o.Window > 0 {
			l.defaults.Window = o.Window
		}
		if o.Prefix != "" {
			l.defaults.Prefix = o.Prefix
		}
	}
}

// WithLogger sets the limiter logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// New creates a Limiter backed by store.
func New(store kv.Store, opts ...Option) *Limiter {
	l := &Limiter{
		store: store,
		defaults: Options{
			MaxRequests: DefaultMaxRequests,
			Window:      DefaultWindow,
			Prefix:      DefaultPrefix,
		},
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Limiter) resolve(o Options) Options {
	if o.MaxRequests <= 0 {
		o.MaxRequests = l.defaults.MaxRequests
	}
	if o.Window <= 0 {
		o.Window = l.defaults.Window
	}
	if o.Prefix == "" {
		o.Prefix = l.defaults.Prefix
	}
	return o
}

// Limit counts one request for id and reports whether it is allowed.
//
// Stores implementing kv.Incrementer get an atomic counter. Other stores use
// a read-then-write of the Record, so concurrent callers can under-count.
func (l *Limiter) Limit(ctx context.Context, id string, opts Options) (Result, error) {
	o := l.resolve(opts)
	key := o.Prefix + ":" + id

	var (
		res Result
		err error
	)
	if inc, ok := l.store.(kv.Incrementer); ok {
		res, err = l.limitAtomic(ctx, inc, key, o)
	} else {
		res, err = l.limitRecord(ctx, key, o)
	}
	if err != nil {
		return Result{}, fmt.Errorf("rate limit %s: %w", o.Prefix, err)
	}

	metrics.IncRateLimit(o.Prefix, res.Success)
	if !res.Success {
		logger := xglog.WithContext(ctx, l.logger)
		logger.Debug().
			Str(xglog.FieldEvent, "ratelimit.rejected").
			Str("prefix", o.Prefix).
			Int64("reset", res.Reset).
			Msg("request rejected by rate limiter")
	}
	return res, nil
}

func (l *Limiter) limitRecord(ctx context.Context, key string, o Options) (Result, error) {
	var rec Record
	found, err := l.store.GetJSON(ctx, key, &rec)
	if err != nil {
		return Result{}, err
	}
	now := l.now().UnixMilli()

	if !found || rec.ResetAt <= now {
		resetAt := now + o.Window.Milliseconds()
		if err := l.store.SetJSON(ctx, key, Record{Count: 1, ResetAt: resetAt}, o.Window); err != nil {
			return Result{}, err
		}
		return Result{Success: true, Limit: o.MaxRequests, Remaining: o.MaxRequests - 1, Reset: resetAt}, nil
	}

	if rec.Count >= o.MaxRequests {
		return Result{Success: false, Limit: o.MaxRequests, Remaining: 0, Reset: rec.ResetAt}, nil
	}

	rec.Count++
	if err := l.store.SetJSON(ctx, key, rec, remainingTTL(rec.ResetAt, now)); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Limit: o.MaxRequests, Remaining: o.MaxRequests - rec.Count, Reset: rec.ResetAt}, nil
}

func (l *Limiter) limitAtomic(ctx context.Context, inc kv.Incrementer, key string, o Options) (Result, error) {
	n, ttl, err := inc.IncrWindow(ctx, key, o.Window)
	if err != nil {
		return Result{}, err
	}
	reset := l.now().Add(ttl).UnixMilli()
	if n > int64(o.MaxRequests) {
		return Result{Success: false, Limit: o.MaxRequests, Remaining: 0, Reset: reset}, nil
	}
	return Result{Success: true, Limit: o.MaxRequests, Remaining: o.MaxRequests - int(n), Reset: reset}, nil
}

// remainingTTL is ceil((resetAt-now)/1s), clamped to at least one second.
func remainingTTL(resetAt, now int64) time.Duration {
	secs := int64(math.Ceil(float64(resetAt-now) / 1000))
	if secs < 1 {
		secs = 1
	}
	return time.Duration(secs) * time.Second
}

// HashIdentifier returns the hex SHA-256 of salt+ip, or "" for an empty ip.
func HashIdentifier(ip, salt string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + ip))
	return hex.EncodeToString(sum[:])
}
