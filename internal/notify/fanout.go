// SPDX-License-Identifier: MIT

package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
)

// Fanout delivers a message to every configured transport.
type Fanout struct {
	transports []Transport
	logger     zerolog.Logger
}

// NewFanout returns a Fanout over transports.
func NewFanout(logger zerolog.Logger, transports ...Transport) *Fanout {
	return &Fanout{transports: transports, logger: logger}
}

// Notify sends msg to each transport in turn. Unconfigured transports are
// skipped; the remaining failures are joined.
func (f *Fanout) Notify(ctx context.Context, msg Message) error {
	logger := xglog.WithContext(ctx, f.logger)

	var errs []error
	for _, t := range f.transports {
		err := t.Notify(ctx, msg)
		switch {
		case err == nil:
			metrics.IncNotification(t.Name(), "delivered")
			logger.Debug().
				Str(xglog.FieldEvent, "notify.delivered").
				Str(xglog.FieldTransport, t.Name()).
				Msg("notification delivered")
		case errors.Is(err, ErrNotConfigured):
			metrics.IncNotification(t.Name(), "skipped")
		default:
			metrics.IncNotification(t.Name(), "failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
