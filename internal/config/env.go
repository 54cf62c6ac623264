// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/log"
)

var sensitiveKeywords = []string{"token", "password", "key", "salt", "secret", "webhook"}

// isSensitiveKey reports whether the value of an environment variable must
// never be written to the log.
func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// lookupEnv returns the trimmed value of key. Unset and blank variables
// both report false.
func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// parseEnv reads key through parse. Unset, blank and unparsable values yield
// def; only the last is logged as a warning.
func parseEnv[T any](logger zerolog.Logger, key string, def T, parse func(string) (T, error)) T {
	raw, ok := lookupEnv(key)
	if !ok {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		ev := logger.Warn().Str("key", key).Interface("default", def)
		if !isSensitiveKey(key) {
			ev = ev.Str("value", raw)
		}
		ev.Msg("invalid value in environment variable, using default")
		return def
	}
	logger.Debug().Str("key", key).Str("source", "environment").Msg("using environment variable")
	return v
}

// ParseString reads a string from environment variable or returns default value.
// Values are trimmed; a blank value falls back to the default.
func ParseString(key, defaultValue string) string {
	return parseStringWithLogger(log.WithComponent("config"), key, defaultValue)
}

func parseStringWithLogger(logger zerolog.Logger, key, defaultValue string) string {
	v, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitiveKey(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	return v
}

// ParseInt reads a base-10 integer.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(log.WithComponent("config"), key, defaultValue, strconv.Atoi)
}

// ParseDuration reads a duration. Plain integers are read as seconds.
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (time.Duration, error) {
		if secs, err := strconv.Atoi(s); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
		return time.ParseDuration(s)
	})
}

// ParseFloat reads a float64.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(log.WithComponent("config"), key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	})
}

// ParseList reads a comma separated list. Blank entries are dropped.
func ParseList(key string, defaultValue []string) []string {
	raw, ok := lookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
