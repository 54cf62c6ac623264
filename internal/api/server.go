// SPDX-License-Identifier: MIT

// Package api exposes the amvhub HTTP surface: the cron refresh endpoint,
// gallery and team reads, the recruitment form, and operational probes.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/api/middleware"
	"github.com/ManuGH/amvhub/internal/gallery"
	"github.com/ManuGH/amvhub/internal/health"
	"github.com/ManuGH/amvhub/internal/ratelimit"
	"github.com/ManuGH/amvhub/internal/recruitment"
	"github.com/ManuGH/amvhub/internal/team"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// Gallery is the slice of gallery.Syncer the API needs.
type Gallery interface {
	Refresh(ctx context.Context) gallery.Result
	Snapshot(ctx context.Context) (gallery.Snapshot, bool, error)
}

// Recruiter accepts recruitment submissions.
type Recruiter interface {
	Submit(ctx context.Context, in recruitment.Input) recruitment.FormState
}

// Deps wires the server to its collaborators.
type Deps struct {
	Gallery     Gallery
	Recruitment Recruiter
	Health      *health.Manager
	Reporter    telemetry.Reporter
	Logger      zerolog.Logger

	// AdminToken guards the refresh endpoint; empty rejects every call.
	AdminToken     string
	AllowedOrigins []string
	TraceService   string
	RateLimit      middleware.RateLimitConfig
	// ClientIP resolves the rate limit identity of a request. Nil keys on
	// the peer address only.
	ClientIP func(r *http.Request) string
	Now      func() time.Time
}

// Server is the amvhub HTTP handler.
type Server struct {
	gallery     Gallery
	recruitment Recruiter
	health      *health.Manager
	reporter    telemetry.Reporter
	logger      zerolog.Logger
	adminToken  string
	clientIP    func(r *http.Request) string
	now         func() time.Time

	router chi.Router
}

// New builds the router with the canonical middleware stack.
func New(deps Deps) *Server {
	s := &Server{
		gallery:     deps.Gallery,
		recruitment: deps.Recruitment,
		health:      deps.Health,
		reporter:    deps.Reporter,
		logger:      deps.Logger,
		adminToken:  deps.AdminToken,
		clientIP:    deps.ClientIP,
		now:         deps.Now,
	}
	if s.clientIP == nil {
		var peerOnly *ratelimit.ClientIPResolver
		s.clientIP = peerOnly.ClientIP
	}
	if s.reporter == nil {
		s.reporter = telemetry.NopReporter{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.health == nil {
		s.health = health.NewManager("")
	}

	r := chi.NewRouter()

	// Probes and metrics sit outside the API stack so that scrapes and
	// orchestrator checks are never rate limited.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Recoverer)
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
		r.Handle("/metrics", promhttp.Handler())
	})

	r.Route("/api", func(r chi.Router) {
		middleware.ApplyStack(r, middleware.StackConfig{
			EnableCORS:            true,
			AllowedOrigins:        deps.AllowedOrigins,
			EnableSecurityHeaders: true,
			EnableMetrics:         true,
			TracingService:        deps.TraceService,
			EnableLogging:         true,
			EnableRateLimit:       true,
			RateLimit:             deps.RateLimit,
		})
		r.HandleFunc("/youtube-refresh", s.handleRefresh)
		r.Get("/videos", s.handleVideos)
		r.Get("/team", s.handleTeam)
		r.Post("/recruitment", s.handleRecruitment)
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleTeam(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"groups": team.Groups()}, false)
}
