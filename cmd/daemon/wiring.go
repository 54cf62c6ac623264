// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/api"
	"github.com/ManuGH/amvhub/internal/api/middleware"
	"github.com/ManuGH/amvhub/internal/config"
	"github.com/ManuGH/amvhub/internal/gallery"
	"github.com/ManuGH/amvhub/internal/health"
	"github.com/ManuGH/amvhub/internal/kv"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/notify"
	"github.com/ManuGH/amvhub/internal/platform/httpx"
	"github.com/ManuGH/amvhub/internal/ratelimit"
	"github.com/ManuGH/amvhub/internal/recruitment"
	"github.com/ManuGH/amvhub/internal/telemetry"
	"github.com/ManuGH/amvhub/internal/youtube"
)

// memoryCleanupInterval is how often the in-process store drops expired keys.
const memoryCleanupInterval = time.Minute

// runtime holds the wired service graph shared by serve and sync.
type runtime struct {
	store    kv.Store
	syncer   *gallery.Syncer
	recruit  *recruitment.Handler
	health   *health.Manager
	reporter telemetry.Reporter
	clientIP *ratelimit.ClientIPResolver

	closers []namedCloser
	logger  zerolog.Logger
}

type namedCloser struct {
	name string
	fn   func(ctx context.Context) error
}

func buildRuntime(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}

	clientIP, err := ratelimit.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	rt.clientIP = clientIP

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled(),
		ServiceName:    cfg.Log.Service,
		ServiceVersion: version,
		Environment:    cfg.Env,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	rt.closers = append(rt.closers, namedCloser{"telemetry", provider.Shutdown})
	rt.reporter = telemetry.NewLogReporter(xglog.WithComponent("reporter"))

	store, closeStore, err := openStore(ctx, cfg.KV, rt.reporter, xglog.WithComponent("kv"))
	if err != nil {
		_ = rt.close(context.Background())
		return nil, err
	}
	rt.store = store
	if closeStore != nil {
		rt.closers = append(rt.closers, namedCloser{"kv", func(context.Context) error { return closeStore() }})
	}

	source, err := youtube.NewSource(ctx, youtube.Config{
		APIKey:     cfg.YouTube.APIKey,
		Endpoint:   cfg.YouTube.Endpoint,
		HTTPClient: httpx.NewClient(cfg.YouTube.Timeout, httpx.WithUserAgent("amvhub/"+version), httpx.WithTracing()),
		Timeout:    cfg.YouTube.Timeout,
		Logger:     xglog.WithComponent("youtube"),
	})
	if err != nil {
		_ = rt.close(context.Background())
		return nil, fmt.Errorf("youtube source: %w", err)
	}
	rt.syncer = gallery.NewSyncer(
		source.Bind(youtube.FetchOptions{
			Limit:      cfg.YouTube.MaxResults,
			PlaylistID: cfg.YouTube.PlaylistID,
			ChannelID:  cfg.YouTube.ChannelID,
		}),
		store,
		gallery.WithReporter(rt.reporter),
		gallery.WithLogger(xglog.WithComponent("gallery")),
	)

	rt.recruit = newRecruitment(cfg, store, rt.reporter)

	rt.health = health.NewManager(version)
	rt.health.RegisterChecker(health.NewKVChecker(pingerFor(store)))
	rt.health.RegisterChecker(health.NewSnapshotChecker(rt.syncer.LastSync, snapshotMaxAge(cfg)))

	return rt, nil
}

// openStore selects the key-value backend. The returned close func is nil
// for backends without resources to release.
func openStore(ctx context.Context, cfg config.KVConfig, reporter telemetry.Reporter, logger zerolog.Logger) (kv.Store, func() error, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		store, err := kv.NewRedisStore(ctx, kv.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Reporter: reporter,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("redis store: %w", err)
		}
		return store, store.Close, nil
	case config.BackendMemory:
		store := kv.NewMemoryStore(memoryCleanupInterval)
		return store, store.Close, nil
	case config.BackendREST, "":
		return kv.NewRESTClient(kv.RESTConfig{
			BaseURL:    cfg.RESTURL,
			Token:      cfg.RESTToken,
			Retries:    cfg.Retries,
			HTTPClient: httpx.NewClient(10*time.Second, httpx.WithTracing()),
			Reporter:   reporter,
			Logger:     logger,
		}), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown kv backend %q", cfg.Backend)
	}
}

func newRecruitment(cfg config.AppConfig, store kv.Store, reporter telemetry.Reporter) *recruitment.Handler {
	limits := ratelimit.Options{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window(),
		Prefix:      recruitment.RateLimitPrefix,
	}
	limiter := ratelimit.New(store,
		ratelimit.WithDefaults(limits),
		ratelimit.WithLogger(xglog.WithComponent("ratelimit")),
	)

	var to []string
	if cfg.Notify.Email != "" {
		to = []string{cfg.Notify.Email}
	}
	notifyLogger := xglog.WithComponent("notify")
	notifier := notify.NewFanout(notifyLogger,
		notify.NewDiscord(notify.DiscordConfig{
			WebhookURL: cfg.Notify.DiscordWebhookURL,
			Username:   "AMV Hub",
			Logger:     notifyLogger,
		}),
		notify.NewResend(notify.ResendConfig{
			APIKey: cfg.Notify.ResendAPIKey,
			To:     to,
			From:   cfg.Notify.FromEmail,
			Logger: notifyLogger,
		}),
	)

	return recruitment.NewHandler(store,
		recruitment.WithLimiter(limiter, limits),
		recruitment.WithNotifier(notifier),
		recruitment.WithReporter(reporter),
		recruitment.WithSalt(cfg.RateLimit.Salt),
		recruitment.WithLogger(xglog.WithComponent("recruitment")),
	)
}

func (rt *runtime) apiHandler(cfg config.AppConfig) http.Handler {
	return api.New(api.Deps{
		Gallery:        rt.syncer,
		Recruitment:    rt.recruit,
		Health:         rt.health,
		Reporter:       rt.reporter,
		Logger:         xglog.WithComponent("api"),
		AdminToken:     cfg.Sync.AdminToken,
		AllowedOrigins: cfg.AllowedOrigins,
		TraceService:   cfg.Log.Service,
		ClientIP:       rt.clientIP.ClientIP,
		RateLimit: middleware.RateLimitConfig{
			RequestLimit: middleware.DefaultAPIRateLimit.RequestLimit,
			WindowSize:   middleware.DefaultAPIRateLimit.WindowSize,
			KeyFunc: func(r *http.Request) (string, error) {
				return rt.clientIP.ClientIP(r), nil
			},
		},
	})
}

// close releases runtime resources in reverse acquisition order.
func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		c := rt.closers[i]
		if err := c.fn(ctx); err != nil {
			rt.logger.Warn().Err(err).Str("resource", c.name).Msg("failed to release resource")
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// refreshTimeout bounds one scheduled or CLI sync: the upstream deadline
// plus room for the snapshot writes.
func refreshTimeout(cfg config.AppConfig) time.Duration {
	return cfg.YouTube.Timeout + 30*time.Second
}

// snapshotMaxAge marks the snapshot stale after three missed intervals.
// Without an in-process schedule the age is not checked.
func snapshotMaxAge(cfg config.AppConfig) time.Duration {
	if cfg.Sync.Interval <= 0 {
		return 0
	}
	return 3 * cfg.Sync.Interval
}

type noopPinger struct{}

func (noopPinger) Ping(context.Context) error { return nil }

func pingerFor(store kv.Store) health.Pinger {
	if p, ok := store.(kv.Pinger); ok {
		return p
	}
	return noopPinger{}
}

