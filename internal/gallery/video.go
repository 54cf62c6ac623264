// SPDX-License-Identifier: MIT

// Package gallery owns the cached AMV video list: its shape, the sync
// orchestration against an upstream source and stale-cache fallback.
package gallery

import (
	"context"
	"time"
)

// TimestampLayout is the millisecond-precision UTC layout used for syncedAt
// and for publishedAt values the upstream omits.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Video is a normalized, cached video record.
type Video struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Thumbnail       string `json:"thumbnail"`
	PublishedAt     string `json:"publishedAt"`
	DurationSeconds int    `json:"durationSeconds"`
}

// Snapshot is the persisted video list. It is replaced wholesale on each
// successful sync.
type Snapshot struct {
	Videos   []Video `json:"videos"`
	SyncedAt string  `json:"syncedAt"`
}

// VideoSource produces the current upstream video list in display order.
type VideoSource interface {
	Videos(ctx context.Context) ([]Video, error)
}

// VideoSourceFunc adapts a function to VideoSource.
type VideoSourceFunc func(ctx context.Context) ([]Video, error)

// Videos implements VideoSource.
func (f VideoSourceFunc) Videos(ctx context.Context) ([]Video, error) {
	return f(ctx)
}
