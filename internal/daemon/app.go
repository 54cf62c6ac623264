// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// App owns the long-lived runtime lifecycle (scheduler) and delegates server
// management to Manager.
type App struct {
	logger    zerolog.Logger
	manager   Manager
	scheduler *Scheduler
}

// NewApp creates a new App orchestrator. scheduler may be nil.
func NewApp(logger zerolog.Logger, manager Manager, scheduler *Scheduler) *App {
	return &App{
		logger:    logger,
		manager:   manager,
		scheduler: scheduler,
	}
}

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.scheduler != nil {
		g.Go(func() error {
			return a.scheduler.Run(ctx)
		})
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}
