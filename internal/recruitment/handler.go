// SPDX-License-Identifier: MIT

package recruitment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/kv"
	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
	"github.com/ManuGH/amvhub/internal/notify"
	"github.com/ManuGH/amvhub/internal/ratelimit"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// Status is the form outcome shown to the visitor.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

const (
	MsgSuccess       = "Submission received. Expect a reply within 48 hours."
	MsgInvalid       = "Please fix the highlighted fields."
	MsgPersistFailed = "We could not save your submission. Please try again."

	// RateLimitPrefix namespaces the recruitment limiter keys.
	RateLimitPrefix = "rate-limit:recruitment"
	// IndexKey holds the ordered list of submission ids.
	IndexKey = "recruitment:index"

	notifyTimeout = 10 * time.Second
)

// SubmissionKey returns the store key for one submission.
func SubmissionKey(id string) string {
	return "recruitment:submission:" + id
}

// FormState is returned to the form after every submission.
type FormState struct {
	Status  Status            `json:"status"`
	Message *string           `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// InitialState is the state of an untouched form.
func InitialState() FormState {
	return FormState{Status: StatusIdle, Errors: map[string]string{}}
}

func state(status Status, msg string, errs map[string]string) FormState {
	if errs == nil {
		errs = map[string]string{}
	}
	return FormState{Status: status, Message: &msg, Errors: errs}
}

// Input is one raw form post.
type Input struct {
	Fields   map[string]string
	ClientIP string
}

// Submission is the persisted record. It is never modified after writing.
type Submission struct {
	ID string `json:"id"`
	Form
	ReceivedAt string `json:"receivedAt"`
	ClientHash string `json:"clientHash,omitempty"`
	Source     string `json:"source"`
}

// Handler processes recruitment submissions.
type Handler struct {
	store    kv.Store
	limiter  *ratelimit.Limiter
	limit    ratelimit.Options
	notifier notify.Notifier
	reporter telemetry.Reporter
	salt     string
	now      func() time.Time
	newID    func() string
	logger   zerolog.Logger
}

// Option customizes a Handler.
type Option func(*Handler)

// WithLimiter enables per-client rate limiting.
func WithLimiter(l *ratelimit.Limiter, opts ratelimit.Options) Option {
	return func(h *Handler) {
		h.limiter = l
		h.limit = opts
	}
}

// WithNotifier sets the notification target.
func WithNotifier(n notify.Notifier) Option {
	return func(h *Handler) { h.notifier = n }
}

// WithReporter sets the error reporter.
func WithReporter(r telemetry.Reporter) Option {
	return func(h *Handler) { h.reporter = r }
}

// WithSalt sets the salt used to hash client IPs.
func WithSalt(salt string) Option {
	return func(h *Handler) { h.salt = salt }
}

// WithClock overrides the clock used for receivedAt.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithIDGenerator overrides submission id generation.
func WithIDGenerator(gen func() string) Option {
	return func(h *Handler) { h.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// NewHandler creates a Handler persisting to store.
func NewHandler(store kv.Store, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		reporter: telemetry.NopReporter{},
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.limit.Prefix == "" {
		h.limit.Prefix = RateLimitPrefix
	}
	return h
}

// Submit validates, rate-limits, persists and announces one submission.
// Honeypot hits and rate-limited requests receive the normal success state.
func (h *Handler) Submit(ctx context.Context, in Input) FormState {
	logger := xglog.WithContext(ctx, h.logger)

	if normalizeValue(in.Fields[HoneypotField]) != "" {
		metrics.IncRecruitment("honeypot")
		logger.Info().Str(xglog.FieldEvent, "recruitment.honeypot").Msg("honeypot field filled; submission discarded")
		return state(StatusSuccess, MsgSuccess, nil)
	}

	form := ParseForm(in.Fields)
	if errs := form.Validate(); len(errs) > 0 {
		metrics.IncRecruitment("invalid")
		logger.Debug().Str(xglog.FieldEvent, "recruitment.invalid").Int("fields", len(errs)).Msg("submission failed validation")
		return state(StatusError, MsgInvalid, errs)
	}

	clientHash := ratelimit.HashIdentifier(in.ClientIP, h.salt)
	if h.limiter != nil && clientHash != "" {
		res, err := h.limiter.Limit(ctx, clientHash, h.limit)
		switch {
		case err != nil:
			logger.Warn().Err(err).Str(xglog.FieldEvent, "recruitment.rate_limit_unavailable").Msg("rate limiter failed; accepting submission")
			h.reporter.Capture(ctx, err, telemetry.Capture{Context: "recruitment.rate_limit"})
		case !res.Success:
			metrics.IncRecruitment("rate_limited")
			logger.Info().
				Str(xglog.FieldEvent, "recruitment.rate_limited").
				Str(xglog.FieldClientHash, clientHash).
				Int64("reset", res.Reset).
				Msg("submission rate limited")
			return state(StatusSuccess, MsgSuccess, nil)
		}
	}

	sub := Submission{
		ID:         h.newID(),
		Form:       form,
		ReceivedAt: h.now().UTC().Format("2006-01-02T15:04:05.000Z"),
		ClientHash: clientHash,
		Source:     "web",
	}
	if err := h.persist(ctx, sub); err != nil {
		metrics.IncRecruitment("persist_failed")
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "recruitment.persist_failed").
			Str(xglog.FieldSubmissionID, sub.ID).
			Msg("could not store submission")
		h.reporter.Capture(ctx, err, telemetry.Capture{
			Context: "recruitment.persist",
			Tags:    map[string]string{"submission_id": sub.ID},
		})
		return state(StatusError, MsgPersistFailed, nil)
	}

	metrics.IncRecruitment("accepted")
	logger.Info().
		Str(xglog.FieldEvent, "recruitment.accepted").
		Str(xglog.FieldSubmissionID, sub.ID).
		Msg("submission stored")

	h.announce(ctx, sub)
	return state(StatusSuccess, MsgSuccess, nil)
}

// persist writes the record, then appends its id to the index. The index
// update is a read-modify-write and can lose ids under concurrent writers.
func (h *Handler) persist(ctx context.Context, sub Submission) error {
	if err := h.store.SetJSON(ctx, SubmissionKey(sub.ID), sub, 0); err != nil {
		return fmt.Errorf("store submission: %w", err)
	}

	var index []string
	if _, err := h.store.GetJSON(ctx, IndexKey, &index); err != nil {
		return fmt.Errorf("read submission index: %w", err)
	}
	index = append(index, sub.ID)
	if err := h.store.SetJSON(ctx, IndexKey, index, 0); err != nil {
		return fmt.Errorf("update submission index: %w", err)
	}
	return nil
}

func (h *Handler) announce(ctx context.Context, sub Submission) {
	if h.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := h.notifier.Notify(ctx, NotificationFor(sub)); err != nil {
		logger := xglog.WithContext(ctx, h.logger)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "recruitment.notify_failed").
			Str(xglog.FieldSubmissionID, sub.ID).
			Msg("submission stored but notification failed")
		h.reporter.Capture(ctx, err, telemetry.Capture{
			Context: "notifications",
			Tags:    map[string]string{"submission_id": sub.ID},
		})
	}
}

// NotificationFor renders a submission as a crew notification.
func NotificationFor(sub Submission) notify.Message {
	return notify.Message{
		Title: fmt.Sprintf("New recruitment submission: %s (%s)", sub.Alias, sub.Name),
		Fields: []notify.Field{
			{Name: "Name", Value: sub.Name, Inline: true},
			{Name: "Alias", Value: sub.Alias, Inline: true},
			{Name: "Age", Value: sub.Age, Inline: true},
			{Name: "Location", Value: sub.Location, Inline: true},
			{Name: "Discord", Value: sub.DiscordHandle, Inline: true},
			{Name: "YouTube channel", Value: sub.YoutubeChannelURL},
			{Name: "Best AMV", Value: sub.BestAMVURL},
			{Name: "Recent AMV", Value: sub.RecentAMVURL},
			{Name: "Availability", Value: sub.Availability},
			{Name: "Received", Value: sub.ReceivedAt, Inline: true},
			{Name: "Submission", Value: sub.ID, Inline: true},
		},
		Body: sub.Introduction,
	}
}
