// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/amvhub/internal/config"
	"github.com/ManuGH/amvhub/internal/gallery"
	"github.com/ManuGH/amvhub/internal/kv"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

func TestOpenStore_Backends(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name      string
		cfg       config.KVConfig
		wantType  any
		wantClose bool
	}{
		{"memory", config.KVConfig{Backend: config.BackendMemory}, &kv.MemoryStore{}, true},
		{"redis", config.KVConfig{Backend: config.BackendRedis, RedisAddr: mr.Addr()}, &kv.RedisStore{}, true},
		{"rest", config.KVConfig{Backend: config.BackendREST, RESTURL: "https://kv.example", RESTToken: "t"}, &kv.RESTClient{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := openStore(context.Background(), tt.cfg, telemetry.NopReporter{}, zerolog.Nop())
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, store)
			assert.Equal(t, tt.wantClose, closeFn != nil)
			if closeFn != nil {
				require.NoError(t, closeFn())
			}
		})
	}
}

func TestOpenStore_Unknown(t *testing.T) {
	_, _, err := openStore(context.Background(), config.KVConfig{Backend: "etcd"}, telemetry.NopReporter{}, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kv backend "etcd"`)
}

func TestSnapshotMaxAge(t *testing.T) {
	cfg := config.Defaults()
	assert.Zero(t, snapshotMaxAge(cfg))
	cfg.Sync.Interval = time.Hour
	assert.Equal(t, 3*time.Hour, snapshotMaxAge(cfg))
}

func TestCheckHealth(t *testing.T) {
	ready := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz":
			w.WriteHeader(http.StatusOK)
		case "/readyz":
			if ready {
				w.WriteHeader(http.StatusOK)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, checkHealth(srv.URL, "ready", time.Second, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "Healthcheck successful (ready)")

	ready = false
	assert.Equal(t, 1, checkHealth(srv.URL, "ready", time.Second, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "503")

	assert.Equal(t, 0, checkHealth(srv.URL, "live", time.Second, &stdout, &stderr))
}

func syncTestConfig(endpoint string) config.AppConfig {
	cfg := config.Defaults()
	cfg.KV.Backend = config.BackendMemory
	cfg.YouTube.APIKey = "test-key"
	cfg.YouTube.PlaylistID = "PL123"
	cfg.YouTube.Endpoint = endpoint
	cfg.YouTube.Timeout = 2 * time.Second
	return cfg
}

func TestRunSync_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/playlistItems"):
			_, _ = w.Write([]byte(`{"items":[{"contentDetails":{"videoId":"video-1"}}]}`))
		case strings.HasSuffix(r.URL.Path, "/videos"):
			_, _ = w.Write([]byte(`{"items":[{"id":"video-1","snippet":{"title":"First AMV","publishedAt":"2024-10-01T12:00:00Z"},"contentDetails":{"duration":"PT4M13S"}}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	code := runSync(context.Background(), syncTestConfig(srv.URL+"/"), &out)
	require.Equal(t, 0, code, out.String())

	var res gallery.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Equal(t, gallery.SourceAPI, res.Source)
	require.Len(t, res.Videos, 1)
	assert.Equal(t, "video-1", res.Videos[0].ID)
	assert.Equal(t, "Synced 1 videos from YouTube.", res.Message)
}

func TestRunSync_FailureWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out bytes.Buffer
	code := runSync(context.Background(), syncTestConfig(srv.URL+"/"), &out)
	assert.Equal(t, 1, code)

	var res gallery.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to refresh AMV dataset.", res.Message)
	assert.Empty(t, res.Videos)
}

func TestRuntimeCloseIsIdempotent(t *testing.T) {
	rt, err := buildRuntime(context.Background(), syncTestConfig("http://127.0.0.1:1/"), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, rt.close(context.Background()))
	require.NoError(t, rt.close(context.Background()))
}
