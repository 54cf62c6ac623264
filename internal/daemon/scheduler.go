// SPDX-License-Identifier: MIT

package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/gallery"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// RefreshFunc runs one gallery sync.
type RefreshFunc func(ctx context.Context) gallery.Result

// Scheduler refreshes the gallery on a fixed interval. It complements the
// cron endpoint for deployments without an external scheduler.
type Scheduler struct {
	refresh  RefreshFunc
	interval time.Duration
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewScheduler creates a scheduler. Each run is bounded by timeout.
func NewScheduler(refresh RefreshFunc, interval, timeout time.Duration, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		refresh:  refresh,
		interval: interval,
		timeout:  timeout,
		logger:   logger.With().Str(xglog.FieldComponent, "scheduler").Logger(),
	}
}

// Run performs one refresh immediately and then one per interval until ctx
// is cancelled. Runs never overlap.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return nil
	}
	s.logger.Info().Dur("interval", s.interval).Msg("gallery refresh scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("gallery refresh scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	runCtx, finish := telemetry.StartTask(runCtx, "youtube-refresh")
	runCtx = xglog.ContextWithTaskID(runCtx, uuid.NewString())

	res := s.refresh(runCtx)
	if !res.OK {
		finish(errors.New(res.Error))
	} else {
		finish(nil)
	}

	logger := xglog.WithContext(runCtx, s.logger)
	logger.Debug().
		Str(xglog.FieldEvent, "scheduler.run").
		Bool("ok", res.OK).
		Str(xglog.FieldSource, res.Source).
		Msg("scheduled refresh finished")
}
