// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/amvhub/internal/validate"
)

// Validate checks a resolved configuration and returns every problem at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("APP_ENV", cfg.Env, []string{EnvDevelopment, EnvTest, EnvProduction})
	v.ListenAddr("LISTEN_ADDR", cfg.ListenAddr)
	v.LogLevel("LOG_LEVEL", cfg.Log.Level)
	v.CIDRList("TRUSTED_PROXIES", cfg.TrustedProxies)

	v.OneOf("KV_BACKEND", cfg.KV.Backend, []string{BackendREST, BackendRedis, BackendMemory})
	switch cfg.KV.Backend {
	case BackendREST:
		if cfg.KV.RESTURL == "" {
			v.AddError("KV_REST_API_URL", "KV_REST_API_URL must be a valid URL.", "")
		} else {
			v.URL("KV_REST_API_URL", cfg.KV.RESTURL, []string{"http", "https"})
		}
		if cfg.KV.RESTToken == "" {
			v.AddError("KV_REST_API_TOKEN", "KV_REST_API_TOKEN is required to authenticate with the KV service.", "")
		}
	case BackendRedis:
		v.NotEmpty("REDIS_ADDR", cfg.KV.RedisAddr)
		v.NonNegative("REDIS_DB", cfg.KV.RedisDB)
	}

	if cfg.YouTube.APIKey == "" {
		v.AddError("YOUTUBE_API_KEY", "YOUTUBE_API_KEY is required for YouTube sync.", "")
	}
	v.Range("YOUTUBE_MAX_RESULTS", cfg.YouTube.MaxResults, 1, 50)
	v.PositiveDuration("YOUTUBE_TIMEOUT", cfg.YouTube.Timeout)
	v.OptionalURL("youtube.endpoint", cfg.YouTube.Endpoint, []string{"http", "https"})

	v.NonNegativeDuration("SYNC_INTERVAL", cfg.Sync.Interval)

	v.OptionalURL("DISCORD_WEBHOOK_URL", cfg.Notify.DiscordWebhookURL, []string{"http", "https"})
	if cfg.Notify.ResendAPIKey != "" {
		v.Email("RECRUITMENT_NOTIFY_EMAIL", cfg.Notify.Email)
	}

	v.OneOf("OTEL_EXPORTER", cfg.Telemetry.Exporter, []string{"none", "grpc", "http"})
	if cfg.Telemetry.Enabled() {
		v.NotEmpty("OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
