// SPDX-License-Identifier: MIT

package ratelimit

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.10"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{name: "remote addr", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "bare remote addr", remoteAddr: "192.168.1.9", want: "192.168.1.9"},
		{name: "trusted proxy x-forwarded-for", remoteAddr: "10.0.0.1:1", headers: map[string]string{"X-Forwarded-For": "203.0.113.1"}, want: "203.0.113.1"},
		{name: "trusted proxy chain", remoteAddr: "10.0.0.1:1", headers: map[string]string{"X-Forwarded-For": " 203.0.113.1 , 198.51.100.1"}, want: "203.0.113.1"},
		{name: "trusted proxy x-real-ip", remoteAddr: "10.0.0.1:1", headers: map[string]string{"X-Real-IP": "203.0.113.5"}, want: "203.0.113.5"},
		{name: "trusted single ip", remoteAddr: "192.0.2.10:443", headers: map[string]string{"X-Forwarded-For": "203.0.113.7"}, want: "203.0.113.7"},
		{name: "untrusted peer forwarded-for ignored", remoteAddr: "198.51.100.7:5000", headers: map[string]string{"X-Forwarded-For": "203.0.113.1"}, want: "198.51.100.7"},
		{name: "untrusted peer real-ip ignored", remoteAddr: "198.51.100.7:5000", headers: map[string]string{"X-Real-IP": "203.0.113.5"}, want: "198.51.100.7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(req))
		})
	}
}

func TestClientIP_NoTrustedProxies(t *testing.T) {
	for name, resolver := range map[string]*ClientIPResolver{
		"empty list": mustResolver(t, nil),
		"nil":        nil,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "10.0.0.1:1"
			req.Header.Set("X-Forwarded-For", "203.0.113.1")
			req.Header.Set("X-Real-IP", "203.0.113.5")
			assert.Equal(t, "10.0.0.1", resolver.ClientIP(req))
		})
	}
}

func TestNewClientIPResolver_RejectsGarbage(t *testing.T) {
	_, err := NewClientIPResolver([]string{"10.0.0.0/8", "not-an-ip"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not-an-ip")
}

func TestLimit_RotatingForwardedForFromUntrustedPeer(t *testing.T) {
	c := &clock{t: time.UnixMilli(1_730_764_800_000)}
	l, _ := newRecordLimiter(t, c)
	resolver := mustResolver(t, []string{"10.0.0.0/8"})
	opts := Options{MaxRequests: 1, Window: time.Minute}

	allowed := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest("POST", "/api/recruitment", nil)
		req.RemoteAddr = "198.51.100.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))

		res, err := l.Limit(context.Background(), HashIdentifier(resolver.ClientIP(req), "salt"), opts)
		require.NoError(t, err)
		if res.Success {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed, "a spoofed header must not mint new identities")
}

func mustResolver(t *testing.T, trusted []string) *ClientIPResolver {
	t.Helper()
	r, err := NewClientIPResolver(trusted)
	require.NoError(t, err)
	return r
}
