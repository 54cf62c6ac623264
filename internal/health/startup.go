// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/ManuGH/amvhub/internal/config"
	"github.com/ManuGH/amvhub/internal/log"
)

// PerformStartupChecks verifies runtime dependencies before the server starts.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig, store Pinger) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return fmt.Errorf("kv backend %s unreachable: %w", cfg.KV.Backend, err)
	}
	logger.Info().Str("backend", cfg.KV.Backend).Msg("key-value store reachable")

	if cfg.YouTube.PlaylistID == "" && cfg.YouTube.ChannelID == "" {
		logger.Warn().Msg("neither YOUTUBE_PLAYLIST_ID nor YOUTUBE_CHANNEL_ID is set; refreshes will serve the cached gallery")
	}
	if cfg.KV.Backend == config.BackendMemory {
		logger.Warn().Msg("memory kv backend in use; gallery and submissions are lost on restart")
	}
	if cfg.Sync.AdminToken == "" {
		logger.Warn().Msg("ADMIN_REFRESH_TOKEN is not set; the refresh endpoint is unauthenticated")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}
