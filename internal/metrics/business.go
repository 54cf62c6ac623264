// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors shared across amvhub.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gallery sync
	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_sync_runs_total",
		Help: "Gallery sync runs by served source and outcome",
	}, []string{"source", "outcome"}) // source=api|cache, outcome=success|degraded|failure

	syncVideos = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amvhub_sync_videos",
		Help: "Number of videos in the last successful snapshot",
	})

	syncLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "amvhub_sync_last_success_timestamp_seconds",
		Help: "Unix time of the last successful upstream sync",
	})

	SyncDroppedVideos = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amvhub_sync_dropped_videos_total",
		Help: "Video ids returned by the listing stage without a matching detail record",
	})

	UpstreamFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_youtube_failures_total",
		Help: "YouTube API failures by stage",
	}, []string{"stage"}) // stage=playlistItems|search|videos

	// Key-value store
	KVRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_kv_requests_total",
		Help: "Key-value store requests by operation and outcome",
	}, []string{"op", "outcome"})

	KVRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "amvhub_kv_retries_total",
		Help: "Key-value store requests retried after a 5xx response",
	})

	// Rate limiting
	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_ratelimit_decisions_total",
		Help: "Fixed-window rate limit decisions by prefix",
	}, []string{"prefix", "decision"}) // decision=allowed|rejected

	// Recruitment
	RecruitmentSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_recruitment_submissions_total",
		Help: "Recruitment form submissions by outcome",
	}, []string{"outcome"}) // outcome=accepted|invalid|honeypot|rate_limited|persist_failed

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_notifications_total",
		Help: "Outbound notifications by transport and outcome",
	}, []string{"transport", "outcome"}) // outcome=delivered|failed|skipped

	// Error reporting
	ErrorsCaptured = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "amvhub_errors_captured_total",
		Help: "Errors reported to the observability collaborator by context",
	}, []string{"context"})
)

// RecordSync records the outcome of one gallery sync run.
func RecordSync(source, outcome string, videos int, at time.Time) {
	SyncRunsTotal.WithLabelValues(source, outcome).Inc()
	if outcome == "success" {
		syncVideos.Set(float64(videos))
		syncLastSuccess.Set(float64(at.Unix()))
	}
}

// AddDroppedVideos counts listing ids with no detail record.
func AddDroppedVideos(n int) {
	if n > 0 {
		SyncDroppedVideos.Add(float64(n))
	}
}

// IncUpstreamFailure counts a failed YouTube API stage.
func IncUpstreamFailure(stage string) {
	UpstreamFailures.WithLabelValues(stage).Inc()
}

// IncKVRequest counts a key-value operation outcome (ok|miss|error).
func IncKVRequest(op, outcome string) {
	KVRequestsTotal.WithLabelValues(op, outcome).Inc()
}

// IncKVRetry counts a retried key-value request.
func IncKVRetry() {
	KVRetriesTotal.Inc()
}

// IncRateLimit counts a rate limit decision.
func IncRateLimit(prefix string, allowed bool) {
	decision := "rejected"
	if allowed {
		decision = "allowed"
	}
	RateLimitDecisions.WithLabelValues(prefix, decision).Inc()
}

// IncRecruitment counts a recruitment submission outcome.
func IncRecruitment(outcome string) {
	RecruitmentSubmissions.WithLabelValues(outcome).Inc()
}

// IncNotification counts an outbound notification attempt.
func IncNotification(transport, outcome string) {
	NotificationsTotal.WithLabelValues(transport, outcome).Inc()
}

// IncErrorCaptured counts an error handed to the reporter.
func IncErrorCaptured(context string) {
	ErrorsCaptured.WithLabelValues(context).Inc()
}
