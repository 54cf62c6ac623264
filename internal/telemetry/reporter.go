// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
)

// Capture carries the context tags attached to a reported error.
type Capture struct {
	Context string
	Tags    map[string]string
	Extra   map[string]any
}

// Reporter is the error-observability collaborator. Implementations must not
// block or fail the caller.
type Reporter interface {
	Capture(ctx context.Context, err error, c Capture)
}

// LogReporter reports errors as structured log lines, span events and a
// Prometheus counter.
type LogReporter struct {
	logger zerolog.Logger
}

// NewLogReporter returns a Reporter writing through the given logger.
func NewLogReporter(logger zerolog.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Capture implements Reporter.
func (r *LogReporter) Capture(ctx context.Context, err error, c Capture) {
	if err == nil {
		return
	}

	name := c.Context
	if name == "" {
		name = "unknown"
	}
	metrics.IncErrorCaptured(name)

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		attrs := []attribute.KeyValue{attribute.String(CaptureContextKey, name)}
		for k, v := range c.Tags {
			attrs = append(attrs, attribute.String("capture.tag."+k, v))
		}
		span.RecordError(err, trace.WithAttributes(attrs...))
	}

	logger := xglog.WithContext(ctx, r.logger)
	ev := logger.Error().Err(err).
		Str(xglog.FieldEvent, "error.captured").
		Str("context", name)
	for k, v := range c.Tags {
		ev = ev.Str("tag."+k, v)
	}
	for k, v := range c.Extra {
		ev = ev.Str("extra."+k, fmt.Sprint(v))
	}
	ev.Msg("error captured")
}

// NopReporter discards every report.
type NopReporter struct{}

// Capture implements Reporter.
func (NopReporter) Capture(context.Context, error, Capture) {}
