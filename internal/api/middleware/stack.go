// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress middleware stack for amvhub.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	xglog "github.com/ManuGH/amvhub/internal/log"
)

// StackConfig configures the canonical HTTP ingress middleware stack.
type StackConfig struct {
	// CORS
	EnableCORS     bool
	AllowedOrigins []string

	// Security headers
	EnableSecurityHeaders bool
	CSP                   string

	// Observability
	EnableMetrics  bool
	TracingService string // empty disables tracing
	EnableLogging  bool

	// Rate limiting (API)
	EnableRateLimit bool
	RateLimit       RateLimitConfig
}

// Chain returns the enabled middlewares, outermost first: panic recovery,
// request id, CORS, security headers, metrics, tracing, access log, then
// the per-IP rate limit.
func Chain(cfg StackConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if cfg.EnableCORS {
		chain = append(chain, CORS(cfg.AllowedOrigins))
	}
	if cfg.EnableSecurityHeaders {
		chain = append(chain, SecurityHeaders(cfg.CSP))
	}
	if cfg.EnableMetrics {
		chain = append(chain, Metrics())
	}
	if cfg.TracingService != "" {
		chain = append(chain, Tracing(cfg.TracingService))
	}
	// Logging sits inside metrics and tracing so it sees their context
	// and measures only handler latency plus the limiter.
	if cfg.EnableLogging {
		chain = append(chain, xglog.Middleware())
	}
	if cfg.EnableRateLimit {
		chain = append(chain, RateLimit(cfg.RateLimit))
	}
	return chain
}

// ApplyStack applies the canonical middleware stack to r.
func ApplyStack(r chi.Router, cfg StackConfig) {
	r.Use(Chain(cfg)...)
}
