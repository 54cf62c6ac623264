// SPDX-License-Identifier: MIT

package gallery

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/kv"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// Sources reported in Result.Source.
const (
	SourceAPI   = "api"
	SourceCache = "cache"
)

const (
	msgFallback = "Falling back to cached AMV dataset after sync failure."
	msgFailed   = "Failed to refresh AMV dataset."
)

// Result is the outcome of a Refresh.
type Result struct {
	OK       bool           `json:"ok"`
	Source   string         `json:"source"`
	Videos   []Video        `json:"videos"`
	SyncedAt *string        `json:"syncedAt"`
	Message  string         `json:"message"`
	Error    string         `json:"error,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// Syncer refreshes the cached video list from a VideoSource and serves the
// last good snapshot when the source fails.
type Syncer struct {
	source   VideoSource
	store    kv.Store
	reporter telemetry.Reporter
	now      func() time.Time
	logger   zerolog.Logger
}

// Option customizes a Syncer.
type Option func(*Syncer)

// WithClock overrides the clock used to stamp syncedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithReporter sets the error reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(s *Syncer) { s.reporter = r }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a Syncer.
func NewSyncer(source VideoSource, store kv.Store, opts ...Option) *Syncer {
	s := &Syncer{
		source:   source,
		store:    store,
		reporter: telemetry.NopReporter{},
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the upstream list and replaces the cached snapshot. On any
// failure, including a failed snapshot write, it falls back to the previous
// snapshot. Refresh never returns an error; failures are described by Result.
func (s *Syncer) Refresh(ctx context.Context) Result {
	logger := xglog.WithContext(ctx, s.logger)

	videos, syncedAt, err := s.sync(ctx)
	if err == nil {
		metrics.RecordSync(SourceAPI, "success", len(videos), s.now())
		logger.Info().
			Str(xglog.FieldEvent, "refresh.success").
			Str(xglog.FieldSource, SourceAPI).
			Int(xglog.FieldVideos, len(videos)).
			Str(xglog.FieldSyncedAt, syncedAt).
			Msg("video list synced")
		return Result{
			OK:       true,
			Source:   SourceAPI,
			Videos:   videos,
			SyncedAt: &syncedAt,
			Message:  fmt.Sprintf("Synced %d videos from YouTube.", len(videos)),
			Meta:     map[string]any{"count": len(videos)},
		}
	}

	s.reporter.Capture(ctx, err, telemetry.Capture{
		Context: "youtube.refresh",
		Extra:   map[string]any{"message": err.Error()},
	})

	snap, found, readErr := s.Snapshot(ctx)
	if readErr != nil {
		logger.Warn().Err(readErr).
			Str(xglog.FieldEvent, "refresh.fallback_read_failed").
			Msg("could not read cached snapshot")
	}
	if found {
		metrics.RecordSync(SourceCache, "degraded", len(snap.Videos), s.now())
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "refresh.fallback").
			Str(xglog.FieldSource, SourceCache).
			Int(xglog.FieldVideos, len(snap.Videos)).
			Msg("serving cached video list after sync failure")
		syncedAt := snap.SyncedAt
		return Result{
			OK:       true,
			Source:   SourceCache,
			Videos:   snap.Videos,
			SyncedAt: &syncedAt,
			Message:  msgFallback,
			Error:    err.Error(),
			Meta:     map[string]any{"count": len(snap.Videos)},
		}
	}

	metrics.RecordSync(SourceAPI, "failure", 0, s.now())
	logger.Error().Err(err).
		Str(xglog.FieldEvent, "refresh.failed").
		Msg("video list sync failed and no cached snapshot exists")
	return Result{
		OK:       false,
		Source:   SourceAPI,
		Videos:   []Video{},
		SyncedAt: nil,
		Message:  msgFailed,
		Error:    err.Error(),
	}
}

func (s *Syncer) sync(ctx context.Context) ([]Video, string, error) {
	videos, err := s.source.Videos(ctx)
	if err != nil {
		return nil, "", err
	}
	if videos == nil {
		videos = []Video{}
	}
	syncedAt := FormatTimestamp(s.now())

	// amv:list carries its own syncedAt and is the commit point. amv:lastSync
	// mirrors it for readers that do not want the whole list.
	if err := s.store.SetJSON(ctx, kv.KeyAMVList, Snapshot{Videos: videos, SyncedAt: syncedAt}, 0); err != nil {
		return nil, "", fmt.Errorf("store video snapshot: %w", err)
	}
	if err := s.store.SetJSON(ctx, kv.KeyAMVLastSync, syncedAt, 0); err != nil {
		logger := xglog.WithContext(ctx, s.logger)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "refresh.last_sync_write_failed").
			Str(xglog.FieldSyncedAt, syncedAt).
			Msg("snapshot stored but last sync marker was not updated")
		s.reporter.Capture(ctx, err, telemetry.Capture{
			Context: "youtube.refresh",
			Tags:    map[string]string{"key": kv.KeyAMVLastSync},
		})
	}
	return videos, syncedAt, nil
}

// Snapshot returns the cached snapshot, if any.
func (s *Syncer) Snapshot(ctx context.Context) (Snapshot, bool, error) {
	var snap Snapshot
	found, err := s.store.GetJSON(ctx, kv.KeyAMVList, &snap)
	if err != nil || !found {
		return Snapshot{}, false, err
	}
	if snap.Videos == nil {
		snap.Videos = []Video{}
	}
	return snap, true, nil
}

// LastSync returns the timestamp of the last successful sync, if any. The
// snapshot's own syncedAt wins; amv:lastSync is read only without a snapshot.
func (s *Syncer) LastSync(ctx context.Context) (string, bool, error) {
	snap, found, err := s.Snapshot(ctx)
	if err != nil {
		return "", false, err
	}
	if found && snap.SyncedAt != "" {
		return snap.SyncedAt, true, nil
	}
	var ts string
	found, err = s.store.GetJSON(ctx, kv.KeyAMVLastSync, &ts)
	if err != nil || !found {
		return "", false, err
	}
	return ts, true, nil
}
