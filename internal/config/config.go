// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads the amvhub runtime configuration from defaults, an
// optional YAML file and the process environment.
package config

import "time"

// KV backends.
const (
	BackendREST   = "rest"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Deployment environments.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Env            string   `yaml:"env"`
	ListenAddr     string   `yaml:"listenAddr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
	// TrustedProxies lists peers (CIDR or IP) whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty trusts nobody.
	TrustedProxies []string `yaml:"trustedProxies"`

	Log       LogConfig       `yaml:"log"`
	KV        KVConfig        `yaml:"kv"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Sync      SyncConfig      `yaml:"sync"`
	Notify    NotifyConfig    `yaml:"notify"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type LogConfig struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// KVConfig selects and configures the key-value backend.
type KVConfig struct {
	Backend       string `yaml:"backend"`
	RESTURL       string `yaml:"restUrl"`
	RESTToken     string `yaml:"restToken"`
	Retries       int    `yaml:"retries"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDb"`
}

type YouTubeConfig struct {
	APIKey     string        `yaml:"apiKey"`
	PlaylistID string        `yaml:"playlistId"`
	ChannelID  string        `yaml:"channelId"`
	MaxResults int           `yaml:"maxResults"`
	Timeout    time.Duration `yaml:"timeout"`
	// Endpoint overrides the API base URL (file only).
	Endpoint string `yaml:"endpoint"`
}

// SyncConfig controls the gallery refresh. A zero Interval disables the
// in-process scheduler; refreshes then come from the cron endpoint only.
type SyncConfig struct {
	Interval   time.Duration `yaml:"interval"`
	AdminToken string        `yaml:"adminToken"`
}

type NotifyConfig struct {
	DiscordWebhookURL string `yaml:"discordWebhookUrl"`
	ResendAPIKey      string `yaml:"resendApiKey"`
	Email             string `yaml:"email"`
	FromEmail         string `yaml:"fromEmail"`
}

type RateLimitConfig struct {
	MaxRequests   int    `yaml:"maxRequests"`
	WindowSeconds int    `yaml:"windowSeconds"`
	Salt          string `yaml:"salt"`
}

// Window returns the configured window as a duration.
func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowSeconds) * time.Second
}

type TelemetryConfig struct {
	Exporter     string  `yaml:"exporter"` // none|grpc|http
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// Enabled reports whether an OTLP exporter is configured.
func (t TelemetryConfig) Enabled() bool {
	return t.Exporter != "" && t.Exporter != "none"
}

// Defaults returns the configuration used when neither file nor environment
// set a value.
func Defaults() AppConfig {
	return AppConfig{
		Env:        EnvDevelopment,
		ListenAddr: ":8080",
		Log: LogConfig{
			Level:   "info",
			Service: "amvhub",
		},
		KV: KVConfig{
			Backend:   BackendREST,
			Retries:   2,
			RedisAddr: "localhost:6379",
		},
		YouTube: YouTubeConfig{
			MaxResults: 12,
			Timeout:    10 * time.Second,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   5,
			WindowSeconds: 60,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "none",
			SamplingRate: 1.0,
		},
	}
}
