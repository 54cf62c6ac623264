// SPDX-License-Identifier: MIT

package config

import (
	"net/url"
	"strings"
)

// MaskSecret hides all but the last four characters of a secret. Short
// secrets are hidden completely.
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}

// MaskURL strips credentials, query and path from a URL, keeping scheme and host.
// Webhook URLs carry their secret in the path.
func MaskURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "***"
	}
	masked := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		masked += "/***"
	}
	return masked
}

// Summary returns a log-safe view of the configuration.
func (c AppConfig) Summary() map[string]any {
	return map[string]any{
		"env":              c.Env,
		"listen_addr":      c.ListenAddr,
		"allowed_origins":  strings.Join(c.AllowedOrigins, ","),
		"kv_backend":       c.KV.Backend,
		"kv_url":           MaskURL(c.KV.RESTURL),
		"kv_token":         MaskSecret(c.KV.RESTToken),
		"redis_addr":       c.KV.RedisAddr,
		"youtube_api_key":  MaskSecret(c.YouTube.APIKey),
		"youtube_playlist": c.YouTube.PlaylistID,
		"youtube_channel":  c.YouTube.ChannelID,
		"sync_interval":    c.Sync.Interval.String(),
		"discord_webhook":  MaskURL(c.Notify.DiscordWebhookURL),
		"resend_api_key":   MaskSecret(c.Notify.ResendAPIKey),
		"rate_limit":       c.RateLimit.MaxRequests,
		"rate_window_s":    c.RateLimit.WindowSeconds,
		"otel_exporter":    c.Telemetry.Exporter,
	}
}
