// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	TaskNameKey = "task.name"

	SyncSourceKey = "sync.source"
	SyncVideosKey = "sync.videos"

	CaptureContextKey = "capture.context"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// TaskAttributes creates attributes for a task span.
func TaskAttributes(task string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TaskNameKey, task),
	}
}

// SyncAttributes describes the outcome of a gallery sync.
func SyncAttributes(source string, videos int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SyncSourceKey, source),
		attribute.Int(SyncVideosKey, videos),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// HTTPAttributes describes a served HTTP request. route is the matched
// pattern, not the raw path.
func HTTPAttributes(method, route string, status int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("http.route", route),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int("http.response.status_code", status))
	}
	return attrs
}
