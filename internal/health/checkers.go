// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"

	"github.com/ManuGH/amvhub/internal/gallery"
)

// Pinger is satisfied by every key-value backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVChecker reports the key-value store unhealthy when it does not answer.
type KVChecker struct {
	store Pinger
}

func NewKVChecker(store Pinger) *KVChecker {
	return &KVChecker{store: store}
}

func (c *KVChecker) Name() string { return "kv" }

func (c *KVChecker) Check(ctx context.Context) CheckResult {
	if err := c.store.Ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Error:   err.Error(),
			Message: "key-value store unreachable",
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "key-value store reachable"}
}

// SnapshotChecker inspects the age of the last successful gallery sync. A
// missing or stale snapshot degrades the service; the gallery still serves
// an empty list.
type SnapshotChecker struct {
	lastSync func(ctx context.Context) (string, bool, error)
	maxAge   time.Duration
	now      func() time.Time
}

// NewSnapshotChecker creates a checker over a LastSync function. A zero
// maxAge disables the staleness check.
func NewSnapshotChecker(lastSync func(ctx context.Context) (string, bool, error), maxAge time.Duration) *SnapshotChecker {
	return &SnapshotChecker{lastSync: lastSync, maxAge: maxAge, now: time.Now}
}

func (c *SnapshotChecker) Name() string { return "gallery_snapshot" }

func (c *SnapshotChecker) Check(ctx context.Context) CheckResult {
	ts, found, err := c.lastSync(ctx)
	if err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Error:   err.Error(),
			Message: "could not read last sync time",
		}
	}
	if !found {
		return CheckResult{Status: StatusDegraded, Message: "no successful sync yet"}
	}

	synced, err := time.Parse(gallery.TimestampLayout, ts)
	if err != nil {
		return CheckResult{Status: StatusDegraded, Error: err.Error(), Message: "unreadable last sync time"}
	}
	if c.maxAge > 0 && c.now().Sub(synced) > c.maxAge {
		return CheckResult{Status: StatusDegraded, Message: "last successful sync at " + ts + " is stale"}
	}
	return CheckResult{Status: StatusHealthy, Message: "last successful sync at " + ts}
}
