// SPDX-License-Identifier: MIT

package recruitment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/amvhub/internal/kv"
	"github.com/ManuGH/amvhub/internal/notify"
	"github.com/ManuGH/amvhub/internal/ratelimit"
)

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

var fixedNow = func() time.Time { return time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC) }

func newHandler(t *testing.T, store kv.Store, n notify.Notifier, opts ...Option) *Handler {
	t.Helper()
	ids := 0
	base := []Option{
		WithNotifier(n),
		WithClock(fixedNow),
		WithSalt("pepper"),
		WithIDGenerator(func() string {
			ids++
			return []string{"sub-1", "sub-2", "sub-3", "sub-4", "sub-5", "sub-6", "sub-7"}[ids-1]
		}),
	}
	return NewHandler(store, append(base, opts...)...)
}

func newStore(t *testing.T) *kv.MemoryStore {
	t.Helper()
	s := kv.NewMemoryStore(0)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func index(t *testing.T, store kv.Store) []string {
	t.Helper()
	var ids []string
	_, err := store.GetJSON(context.Background(), IndexKey, &ids)
	require.NoError(t, err)
	return ids
}

func TestSubmit_EmptyFormReturnsAllErrors(t *testing.T) {
	store := newStore(t)
	n := &recordingNotifier{}
	h := newHandler(t, store, n)

	st := h.Submit(context.Background(), Input{Fields: map[string]string{}, ClientIP: "203.0.113.9"})

	assert.Equal(t, StatusError, st.Status)
	require.NotNil(t, st.Message)
	assert.Equal(t, MsgInvalid, *st.Message)
	for _, f := range []string{"name", "alias", "age", "location", "discordHandle", "youtubeChannelUrl", "bestAmvUrl", "recentAmvUrl", "introduction"} {
		assert.Contains(t, st.Errors, f)
	}
	assert.NotContains(t, st.Errors, "availability")
	assert.Empty(t, index(t, store))
	assert.Zero(t, n.count())
}

func TestSubmit_HoneypotLooksSuccessful(t *testing.T) {
	store := newStore(t)
	n := &recordingNotifier{}
	h := newHandler(t, store, n)

	fields := validFields()
	fields[HoneypotField] = "buy now"
	st := h.Submit(context.Background(), Input{Fields: fields})

	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, MsgSuccess, *st.Message)
	assert.Empty(t, st.Errors)
	assert.Empty(t, index(t, store))
	assert.Zero(t, n.count())
}

func TestSubmit_HoneypotWhitespaceIgnored(t *testing.T) {
	store := newStore(t)
	h := newHandler(t, store, &recordingNotifier{})

	fields := validFields()
	fields[HoneypotField] = "   "
	st := h.Submit(context.Background(), Input{Fields: fields})

	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, []string{"sub-1"}, index(t, store))
}

func TestSubmit_ValidSubmission(t *testing.T) {
	store := newStore(t)
	n := &recordingNotifier{}
	h := newHandler(t, store, n)

	st := h.Submit(context.Background(), Input{Fields: validFields(), ClientIP: "203.0.113.9"})

	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, MsgSuccess, *st.Message)
	assert.Empty(t, st.Errors)

	assert.Equal(t, []string{"sub-1"}, index(t, store))
	var sub Submission
	found, err := store.GetJSON(context.Background(), SubmissionKey("sub-1"), &sub)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Jiwoo Song", sub.Name)
	assert.Equal(t, "2024-11-05T00:00:00.000Z", sub.ReceivedAt)
	assert.Equal(t, "web", sub.Source)
	assert.Equal(t, ratelimit.HashIdentifier("203.0.113.9", "pepper"), sub.ClientHash)

	require.Equal(t, 1, n.count())
	msg := n.msgs[0]
	assert.Contains(t, msg.Title, "shadowdial")
	assert.Equal(t, sub.Introduction, msg.Body)
}

func TestSubmit_IndexAppends(t *testing.T) {
	store := newStore(t)
	h := newHandler(t, store, nil)

	for i := 0; i < 3; i++ {
		st := h.Submit(context.Background(), Input{Fields: validFields()})
		require.Equal(t, StatusSuccess, st.Status)
	}
	assert.Equal(t, []string{"sub-1", "sub-2", "sub-3"}, index(t, store))
}

func TestSubmit_NotificationFailureStillSucceeds(t *testing.T) {
	store := newStore(t)
	n := &recordingNotifier{err: errors.New("discord down")}
	h := newHandler(t, store, n)

	st := h.Submit(context.Background(), Input{Fields: validFields()})
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Equal(t, 1, n.count())
	assert.Len(t, index(t, store), 1)
}

type brokenStore struct{ kv.Store }

func (brokenStore) SetJSON(context.Context, string, any, time.Duration) error {
	return &kv.RequestError{Path: "set/x", Status: 500}
}

func TestSubmit_PersistFailure(t *testing.T) {
	n := &recordingNotifier{}
	h := newHandler(t, brokenStore{newStore(t)}, n)

	st := h.Submit(context.Background(), Input{Fields: validFields()})
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, MsgPersistFailed, *st.Message)
	assert.Empty(t, st.Errors)
	assert.Zero(t, n.count())
}

func TestSubmit_RateLimited(t *testing.T) {
	store := newStore(t)
	n := &recordingNotifier{}
	limiter := ratelimit.New(store, ratelimit.WithClock(fixedNow))
	h := newHandler(t, store, n, WithLimiter(limiter, ratelimit.Options{MaxRequests: 2, Window: time.Minute}))

	for i := 0; i < 4; i++ {
		st := h.Submit(context.Background(), Input{Fields: validFields(), ClientIP: "198.51.100.7"})
		assert.Equal(t, StatusSuccess, st.Status, "attempt %d", i+1)
		assert.Equal(t, MsgSuccess, *st.Message)
	}
	assert.Equal(t, []string{"sub-1", "sub-2"}, index(t, store))
	assert.Equal(t, 2, n.count())

	// a different client is unaffected
	st := h.Submit(context.Background(), Input{Fields: validFields(), ClientIP: "198.51.100.8"})
	assert.Equal(t, StatusSuccess, st.Status)
	assert.Len(t, index(t, store), 3)
}

func TestSubmit_NoClientIPSkipsLimiter(t *testing.T) {
	store := newStore(t)
	limiter := ratelimit.New(store)
	h := newHandler(t, store, nil, WithLimiter(limiter, ratelimit.Options{MaxRequests: 1}))

	for i := 0; i < 3; i++ {
		h.Submit(context.Background(), Input{Fields: validFields()})
	}
	assert.Len(t, index(t, store), 3)
}

func TestInitialState(t *testing.T) {
	st := InitialState()
	assert.Equal(t, StatusIdle, st.Status)
	assert.Nil(t, st.Message)
	assert.NotNil(t, st.Errors)
}
