// SPDX-License-Identifier: MIT

// Package kv provides JSON key-value storage backed by a REST key-value
// service, Redis, or process memory.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Store reads and writes JSON values by key. Implementations own
// serialization; callers own the shape of what they store.
type Store interface {
	// GetJSON decodes the value stored at key into dst. It reports false
	// (and a nil error) when the key is absent or expired.
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	// SetJSON stores value at key. A zero ttl stores without expiry.
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Incrementer is an optional Store capability: an atomic counter whose
// expiry is set on the first increment of a window and never extended.
type Incrementer interface {
	// IncrWindow increments the counter at key and returns the new count
	// together with the time left until the window expires.
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Pinger is implemented by stores that can cheaply verify connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	// ErrRequestFailed classifies failed store requests; match with errors.Is.
	ErrRequestFailed = errors.New("kv: request failed")
	// ErrEmptyKey is returned for blank keys.
	ErrEmptyKey = errors.New("kv: empty key")
	// ErrMalformedValue is returned when a stored value is not valid JSON for dst.
	ErrMalformedValue = errors.New("kv: malformed stored value")
)

// RequestError describes a failed request against the remote store.
type RequestError struct {
	Path   string
	Status int    // HTTP status; 0 for transport failures
	Body   string // response payload, if any
	Err    error  // lower-level transport error
}

func (e *RequestError) Error() string {
	msg := fmt.Sprintf("kv request failed for %s", e.Path)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Is reports ErrRequestFailed so callers can classify without type assertions.
func (e *RequestError) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}

func encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("kv: encode value: %w", err)
	}
	return data, nil
}

func decode(key string, data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w at %q: %v", ErrMalformedValue, key, err)
	}
	return nil
}

// ttlSeconds converts a TTL to whole seconds, rounding up so that a
// positive TTL never collapses to "no expiry".
func ttlSeconds(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	secs := int64(ttl / time.Second)
	if ttl%time.Second != 0 {
		secs++
	}
	return secs
}
