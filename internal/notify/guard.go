// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while a transport's breaker rejects requests.
var ErrCircuitOpen = errors.New("notify: circuit open")

// guard throttles a transport and trips a breaker after repeated failures.
type guard struct {
	cb      *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
}

type guardConfig struct {
	name     string
	rate     rate.Limit
	burst    int
	failures uint32        // consecutive failures before opening
	cooldown time.Duration // open -> half-open
	logger   zerolog.Logger
}

func newGuard(cfg guardConfig) *guard {
	if cfg.failures == 0 {
		cfg.failures = 3
	}
	if cfg.cooldown <= 0 {
		cfg.cooldown = 30 * time.Second
	}
	logger := cfg.logger
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.name,
		MaxRequests: 1,
		Timeout:     cfg.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("event", "notify.breaker_state").
				Str("transport", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("notification circuit breaker changed state")
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &guard{cb: cb, limiter: rate.NewLimiter(cfg.rate, cfg.burst)}
}

func (g *guard) do(ctx context.Context, fn func(context.Context) error) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: throttled: %w", err)
	}
	_, err := g.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return err
}
