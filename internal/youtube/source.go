// SPDX-License-Identifier: MIT

// Package youtube fetches channel or playlist videos from the YouTube Data
// API v3 and normalizes them into gallery records.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/ManuGH/amvhub/internal/gallery"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
	"github.com/ManuGH/amvhub/internal/platform/httpx"
)

const (
	// DefaultLimit is the number of videos fetched when FetchOptions.Limit is unset.
	DefaultLimit = 12
	// DefaultTimeout bounds one FetchVideos call.
	DefaultTimeout = 10 * time.Second

	maxPageSize = 50
)

// Config configures a Source.
type Config struct {
	APIKey     string        // default key; FetchOptions.APIKey overrides it
	Endpoint   string        // optional API base URL, e.g. a test server
	HTTPClient *http.Client  // optional; defaults to an httpx client
	Timeout    time.Duration // per-FetchVideos deadline; 0 uses DefaultTimeout
	Now        func() time.Time
	Logger     zerolog.Logger
}

// FetchOptions selects what to fetch. A playlist id takes precedence over a
// channel id.
type FetchOptions struct {
	Limit      int
	APIKey     string
	PlaylistID string
	ChannelID  string
}

// Source is a two-stage YouTube video fetcher: resolve ids from a playlist
// or channel, then load details for those ids in one call.
type Source struct {
	service *yt.Service
	apiKey  string
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSource builds a Source. The API key is sent as a query parameter on
// each call so that FetchOptions can override it.
func NewSource(ctx context.Context, cfg Config) (*Source, error) {
	client := cfg.HTTPClient
	if client == nil {
		client = httpx.NewClient(DefaultTimeout)
	}
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Source{
		service: service,
		apiKey:  cfg.APIKey,
		timeout: timeout,
		now:     now,
		logger:  cfg.Logger,
	}, nil
}

// Bind returns a gallery.VideoSource that fetches with fixed options.
func (s *Source) Bind(opts FetchOptions) gallery.VideoSource {
	return gallery.VideoSourceFunc(func(ctx context.Context) ([]gallery.Video, error) {
		return s.FetchVideos(ctx, opts)
	})
}

// FetchVideos returns up to opts.Limit normalized videos in source order.
func (s *Source) FetchVideos(ctx context.Context, opts FetchOptions) ([]gallery.Video, error) {
	playlistID := strings.TrimSpace(opts.PlaylistID)
	channelID := strings.TrimSpace(opts.ChannelID)
	if playlistID == "" && channelID == "" {
		return nil, ErrMissingSource
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	key := opts.APIKey
	if key == "" {
		key = s.apiKey
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var (
		ids []string
		err error
	)
	if playlistID != "" {
		ids, err = s.playlistIDs(ctx, playlistID, limit, key)
	} else {
		ids, err = s.channelIDs(ctx, channelID, limit, key)
	}
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []gallery.Video{}, nil
	}

	items, err := s.details(ctx, ids, key)
	if err != nil {
		return nil, err
	}

	videos, dropped := normalize(items, ids, gallery.FormatTimestamp(s.now()))
	if dropped > 0 {
		metrics.AddDroppedVideos(dropped)
		logger := xglog.WithContext(ctx, s.logger)
		logger.Debug().
			Str(xglog.FieldEvent, "youtube.dropped_ids").
			Int("dropped", dropped).
			Int("requested", len(ids)).
			Msg("video ids without detail records were skipped")
	}
	return videos, nil
}

func (s *Source) playlistIDs(ctx context.Context, playlistID string, limit int, key string) ([]string, error) {
	resp, err := s.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(int64(min(limit, maxPageSize))).
		Context(ctx).
		Do(keyParam(key)...)
	if err != nil {
		return nil, stageError(StagePlaylistItems, err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.ContentDetails == nil {
			continue
		}
		if id := strings.TrimSpace(item.ContentDetails.VideoId); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Source) channelIDs(ctx context.Context, channelID string, limit int, key string) ([]string, error) {
	resp, err := s.service.Search.List([]string{"snippet"}).
		ChannelId(channelID).
		Order("date").
		Type("video").
		MaxResults(int64(min(limit, maxPageSize))).
		Context(ctx).
		Do(keyParam(key)...)
	if err != nil {
		return nil, stageError(StageSearch, err)
	}

	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == nil {
			continue
		}
		if id := strings.TrimSpace(item.Id.VideoId); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Source) details(ctx context.Context, ids []string, key string) ([]*yt.Video, error) {
	resp, err := s.service.Videos.List([]string{"snippet", "contentDetails"}).
		Id(ids...).
		Context(ctx).
		Do(keyParam(key)...)
	if err != nil {
		return nil, stageError(StageVideos, err)
	}
	return resp.Items, nil
}

func keyParam(key string) []googleapi.CallOption {
	if key == "" {
		return nil
	}
	return []googleapi.CallOption{googleapi.QueryParameter("key", key)}
}

func stageError(stage string, err error) error {
	metrics.IncUpstreamFailure(stage)
	se := &StageError{Stage: stage, Err: err}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		se.Status = gerr.Code
	}
	return se
}
