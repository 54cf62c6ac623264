// SPDX-License-Identifier: MIT

package ratelimit

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ClientIPResolver extracts the client address used as the rate limit
// identity. Forwarding headers are honoured only when the direct peer is a
// trusted proxy; otherwise any client could pick its own identity.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses trusted proxy entries (CIDRs or single IPs).
// An empty list trusts nobody and always keys on the peer address.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	c := &ClientIPResolver{}
	for _, entry := range trustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if _, ipnet, err := net.ParseCIDR(entry); err == nil {
			c.trusted = append(c.trusted, ipnet)
			continue
		}
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, fmt.Errorf("invalid trusted proxy %q (must be CIDR or IP)", entry)
		}
		bits := 128
		if v4 := ip.To4(); v4 != nil {
			ip, bits = v4, 32
		}
		c.trusted = append(c.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}
	return c, nil
}

// ClientIP returns the originating client IP. X-Forwarded-For (first hop)
// and X-Real-IP are read only from trusted peers. A nil resolver trusts
// nobody.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := remoteHost(r.RemoteAddr)
	if c != nil && c.isTrusted(peer) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			return xri
		}
	}
	return peer
}

func (c *ClientIPResolver) isTrusted(host string) bool {
	if len(c.trusted) == 0 {
		return false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range c.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil || host == "" {
		return remoteAddr
	}
	return host
}
