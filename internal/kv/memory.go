// SPDX-License-Identifier: MIT

package kv

import (
	"context"
	"sync"
	"time"
)

// Stats holds store performance counters.
type Stats struct {
	Hits        int64 // Number of successful reads
	Misses      int64 // Number of reads of absent or expired keys
	Sets        int64 // Number of writes
	Evictions   int64 // Number of expired entries cleaned up
	CurrentSize int   // Current number of stored entries
}

// entry is a stored JSON document with an optional expiry.
type entry struct {
	value      []byte
	expiration time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && !now.Before(e.expiration)
}

// MemoryStore is an in-process Store with TTL support, used for local
// development and tests. It implements Incrementer with the same
// fixed-window semantics as RedisStore.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	stats   Stats
	now     func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the store clock.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an in-memory store. A positive cleanupInterval
// starts a janitor goroutine that removes expired entries; call Close to
// stop it.
func NewMemoryStore(cleanupInterval time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	} else {
		close(s.done)
	}
	return s
}

// GetJSON implements Store.
func (s *MemoryStore) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	s.mu.Lock()
	e, found := s.entries[key]
	if found && e.expired(s.now()) {
		found = false
	}
	if !found {
		s.stats.Misses++
		s.mu.Unlock()
		return false, nil
	}
	s.stats.Hits++
	data := e.value
	s.mu.Unlock()

	if err := decode(key, data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON implements Store.
func (s *MemoryStore) SetJSON(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := &entry{value: data}
	if ttl > 0 {
		e.expiration = s.now().Add(ttl)
	}
	s.entries[key] = e
	s.stats.Sets++
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// IncrWindow implements Incrementer.
func (s *MemoryStore) IncrWindow(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if err := checkKey(key); err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	e, found := s.entries[key]
	if found && !e.expired(now) {
		if err := decode(key, e.value, &n); err != nil {
			return 0, 0, err
		}
	} else {
		e = &entry{expiration: now.Add(window)}
		s.entries[key] = e
	}
	n++
	data, err := encode(n)
	if err != nil {
		return 0, 0, err
	}
	e.value = data
	return n, e.expiration.Sub(now), nil
}

// Ping implements Pinger.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Stats returns store statistics.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.stats
	stats.CurrentSize = len(s.entries)
	return stats
}

// Close stops the janitor goroutine and waits for it to exit.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
	return nil
}

// deleteExpired removes all expired entries and returns how many it removed.
func (s *MemoryStore) deleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			count++
		}
	}
	s.stats.Evictions += int64(count)
	return count
}

func (s *MemoryStore) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.deleteExpired()
		case <-s.stop:
			return
		}
	}
}
