// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ManuGH/amvhub/internal/log"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	ConsumedEnvKeys map[string]struct{} // keys read during the last Load
}

// NewLoader creates a new configuration loader. An empty configPath skips
// the file layer.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath:      configPath,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envInt(key string, defaultVal int) int {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseInt(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

func (l *Loader) envFloat(key string, defaultVal float64) float64 {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseFloat(key, defaultVal)
}

func (l *Loader) envList(key string, defaultVal []string) []string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseList(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults.
// Order is strict: defaults, file (unknown keys rejected), env, sanitize, validate.
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		if err := loadFile(l.configPath, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("load config file %s: %w", l.configPath, err)
		}
	}

	l.mergeEnv(&cfg)
	sanitize(&cfg, log.WithComponent("config"))

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// loadFile decodes a YAML document on top of cfg.
func loadFile(path string, cfg *AppConfig) error {
	// #nosec G304 -- configuration file paths are provided by the operator via CLI
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

func (l *Loader) mergeEnv(cfg *AppConfig) {
	cfg.Env = l.envString("APP_ENV", cfg.Env)
	cfg.ListenAddr = l.envString("LISTEN_ADDR", cfg.ListenAddr)
	cfg.AllowedOrigins = l.envList("ALLOWED_ORIGINS", cfg.AllowedOrigins)
	cfg.TrustedProxies = l.envList("TRUSTED_PROXIES", cfg.TrustedProxies)

	cfg.Log.Level = l.envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Service = l.envString("LOG_SERVICE", cfg.Log.Service)

	cfg.KV.Backend = l.envString("KV_BACKEND", cfg.KV.Backend)
	cfg.KV.RESTURL = l.envString("KV_REST_API_URL", cfg.KV.RESTURL)
	cfg.KV.RESTToken = l.envString("KV_REST_API_TOKEN", cfg.KV.RESTToken)
	cfg.KV.Retries = l.envInt("KV_RETRIES", cfg.KV.Retries)
	cfg.KV.RedisAddr = l.envString("REDIS_ADDR", cfg.KV.RedisAddr)
	cfg.KV.RedisPassword = l.envString("REDIS_PASSWORD", cfg.KV.RedisPassword)
	cfg.KV.RedisDB = l.envInt("REDIS_DB", cfg.KV.RedisDB)

	cfg.YouTube.APIKey = l.envString("YOUTUBE_API_KEY", cfg.YouTube.APIKey)
	cfg.YouTube.PlaylistID = l.envString("YOUTUBE_PLAYLIST_ID", cfg.YouTube.PlaylistID)
	cfg.YouTube.ChannelID = l.envString("YOUTUBE_CHANNEL_ID", cfg.YouTube.ChannelID)
	cfg.YouTube.MaxResults = l.envInt("YOUTUBE_MAX_RESULTS", cfg.YouTube.MaxResults)
	cfg.YouTube.Timeout = l.envDuration("YOUTUBE_TIMEOUT", cfg.YouTube.Timeout)

	cfg.Sync.Interval = l.envDuration("SYNC_INTERVAL", cfg.Sync.Interval)
	cfg.Sync.AdminToken = l.envString("ADMIN_REFRESH_TOKEN", cfg.Sync.AdminToken)

	cfg.Notify.DiscordWebhookURL = l.envString("DISCORD_WEBHOOK_URL", cfg.Notify.DiscordWebhookURL)
	cfg.Notify.ResendAPIKey = l.envString("RESEND_API_KEY", cfg.Notify.ResendAPIKey)
	cfg.Notify.Email = l.envString("RECRUITMENT_NOTIFY_EMAIL", cfg.Notify.Email)
	cfg.Notify.FromEmail = l.envString("RECRUITMENT_FROM_EMAIL", cfg.Notify.FromEmail)

	cfg.RateLimit.MaxRequests = l.envInt("RATE_LIMIT_MAX_REQUESTS", cfg.RateLimit.MaxRequests)
	cfg.RateLimit.WindowSeconds = l.envInt("RATE_LIMIT_WINDOW_SECONDS", cfg.RateLimit.WindowSeconds)
	cfg.RateLimit.Salt = l.envString("RATE_LIMIT_SALT", cfg.RateLimit.Salt)

	cfg.Telemetry.Exporter = l.envString("OTEL_EXPORTER", cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = l.envString("OTEL_ENDPOINT", cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = l.envFloat("OTEL_SAMPLING_RATE", cfg.Telemetry.SamplingRate)
}

// sanitize replaces soft-invalid values with defaults instead of failing.
// Rate limit settings and the sampling rate are tuning knobs; a bad value
// must not keep the service from starting.
func sanitize(cfg *AppConfig, logger zerolog.Logger) {
	def := Defaults()
	if cfg.RateLimit.MaxRequests <= 0 {
		logger.Warn().Int("value", cfg.RateLimit.MaxRequests).Msg("RATE_LIMIT_MAX_REQUESTS must be positive, using default")
		cfg.RateLimit.MaxRequests = def.RateLimit.MaxRequests
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		logger.Warn().Int("value", cfg.RateLimit.WindowSeconds).Msg("RATE_LIMIT_WINDOW_SECONDS must be positive, using default")
		cfg.RateLimit.WindowSeconds = def.RateLimit.WindowSeconds
	}
	if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
		logger.Warn().Float64("value", cfg.Telemetry.SamplingRate).Msg("OTEL_SAMPLING_RATE must be within [0,1], using default")
		cfg.Telemetry.SamplingRate = def.Telemetry.SamplingRate
	}
	if cfg.KV.Retries < 0 {
		cfg.KV.Retries = 0
	}
}

// LogOptionalNotices reports unset optional integrations. It only speaks up
// in development so production logs stay quiet.
func LogOptionalNotices(cfg AppConfig, logger zerolog.Logger) []string {
	if cfg.Env != EnvDevelopment {
		return nil
	}
	optional := []struct {
		key   string
		value string
	}{
		{"RESEND_API_KEY", cfg.Notify.ResendAPIKey},
		{"DISCORD_WEBHOOK_URL", cfg.Notify.DiscordWebhookURL},
		{"ADMIN_REFRESH_TOKEN", cfg.Sync.AdminToken},
		{"RATE_LIMIT_SALT", cfg.RateLimit.Salt},
	}
	var missing []string
	for _, o := range optional {
		if o.value != "" {
			continue
		}
		missing = append(missing, o.key)
		logger.Info().
			Str("event", "config.optional_missing").
			Str("key", o.key).
			Msg("optional environment variable is not set")
	}
	return missing
}
