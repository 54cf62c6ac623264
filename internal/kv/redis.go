// SPDX-License-Identifier: MIT

package kv

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/amvhub/internal/metrics"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Reporter telemetry.Reporter
}

// RedisStore is a Redis-backed Store that also implements Incrementer.
type RedisStore struct {
	client   *redis.Client
	logger   zerolog.Logger
	reporter telemetry.Reporter
	stats  struct {
		hits   atomic.Int64
		misses atomic.Int64
		sets   atomic.Int64
	}
}

// incrWindowScript increments a counter and arms its expiry only on the
// first hit of a window (or if the key somehow lost its TTL).
var incrWindowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if n == 1 or ttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, config RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("event", "kv.redis_connected").
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis store")

	return newRedisStore(client, logger, config.Reporter), nil
}

func newRedisStore(client *redis.Client, logger zerolog.Logger, reporter telemetry.Reporter) *RedisStore {
	if reporter == nil {
		reporter = telemetry.NopReporter{}
	}
	return &RedisStore{client: client, logger: logger, reporter: reporter}
}

// GetJSON implements Store.
func (s *RedisStore) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		s.stats.misses.Add(1)
		metrics.IncKVRequest("get", "miss")
		return false, nil
	}
	if err != nil {
		metrics.IncKVRequest("get", "error")
		return false, s.fail(ctx, &RequestError{Path: "get/" + key, Err: err}, "")
	}
	if err := decode(key, val, dst); err != nil {
		metrics.IncKVRequest("get", "error")
		return false, s.fail(ctx, err, "failed to parse JSON value from KV")
	}
	s.stats.hits.Add(1)
	metrics.IncKVRequest("get", "ok")
	return true, nil
}

// SetJSON implements Store.
func (s *RedisStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		metrics.IncKVRequest("set", "error")
		return s.fail(ctx, &RequestError{Path: "set/" + key, Err: err}, "")
	}
	s.stats.sets.Add(1)
	metrics.IncKVRequest("set", "ok")
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		metrics.IncKVRequest("delete", "error")
		return s.fail(ctx, &RequestError{Path: "del/" + key, Err: err}, "")
	}
	metrics.IncKVRequest("delete", "ok")
	return nil
}

// IncrWindow implements Incrementer.
func (s *RedisStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if err := checkKey(key); err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		return 0, 0, fmt.Errorf("kv: window must be positive, got %s", window)
	}
	res, err := incrWindowScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		metrics.IncKVRequest("incr", "error")
		return 0, 0, s.fail(ctx, &RequestError{Path: "incr/" + key, Err: err}, "")
	}
	if len(res) != 2 {
		metrics.IncKVRequest("incr", "error")
		return 0, 0, s.fail(ctx, &RequestError{Path: "incr/" + key, Err: fmt.Errorf("unexpected script reply %v", res)}, "")
	}
	metrics.IncKVRequest("incr", "ok")
	return res[0], time.Duration(res[1]) * time.Millisecond, nil
}

// fail reports err to the error collaborator and returns it unchanged.
func (s *RedisStore) fail(ctx context.Context, err error, message string) error {
	capture := telemetry.Capture{Context: "kv", Tags: map[string]string{"backend": "redis"}}
	var rerr *RequestError
	if errors.As(err, &rerr) {
		capture.Tags["path"] = rerr.Path
	}
	if message != "" {
		capture.Extra = map[string]any{"message": message}
	}
	s.reporter.Capture(ctx, err, capture)
	return err
}

// Stats returns store statistics.
func (s *RedisStore) Stats(ctx context.Context) Stats {
	size, err := s.client.DBSize(ctx).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("event", "kv.dbsize_failed").Msg("redis dbsize failed")
		size = 0
	}
	return Stats{
		Hits:        s.stats.hits.Load(),
		Misses:      s.stats.misses.Load(),
		Sets:        s.stats.sets.Load(),
		CurrentSize: int(size),
	}
}

// Ping implements Pinger.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
