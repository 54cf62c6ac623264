// SPDX-License-Identifier: MIT

// Package httpx builds the outbound HTTP clients used for upstream APIs,
// the REST key-value store and notification webhooks.
package httpx

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultClientTimeout         = 5 * time.Second
	defaultDialTimeout           = 3 * time.Second
	defaultResponseHeaderTimeout = 3 * time.Second
	defaultIdleConnTimeout       = 30 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 16
	defaultMaxIdleConnsPerHost   = 4

	// DefaultUserAgent identifies amvhub to upstream services.
	DefaultUserAgent = "amvhub/1.0"
)

// Option customizes a client built by NewClient.
type Option func(*options)

type options struct {
	userAgent string
	traced    bool
}

// WithUserAgent sets the User-Agent header on requests that do not carry one.
// An empty value disables the header injection.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithTracing wraps the transport with OpenTelemetry client spans named
// after the request method and host.
func WithTracing() Option {
	return func(o *options) { o.traced = true }
}

// NewClient returns a hardened HTTP client with bounded dial and
// response-header timeouts.
func NewClient(timeout time.Duration, opts ...Option) *http.Client {
	o := options{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&o)
	}

	if timeout <= 0 {
		timeout = defaultClientTimeout
	}

	dialTimeout := min(timeout, defaultDialTimeout)
	responseHeaderTimeout := min(timeout, defaultResponseHeaderTimeout)

	var transport http.RoundTripper = &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          defaultMaxIdleConns,
		MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   dialTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		ExpectContinueTimeout: defaultExpectContinueTimeout,
	}
	if o.userAgent != "" {
		transport = &userAgentTransport{next: transport, userAgent: o.userAgent}
	}
	if o.traced {
		transport = &tracedTransport{
			base: transport,
			next: otelhttp.NewTransport(transport, otelhttp.WithSpanNameFormatter(spanName)),
		}
	}

	return &http.Client{Timeout: timeout, Transport: transport}
}

// BaseTransport returns the *http.Transport underneath any wrappers added
// by NewClient, or nil if the client was not built here.
func BaseTransport(c *http.Client) *http.Transport {
	switch t := c.Transport.(type) {
	case *http.Transport:
		return t
	case *userAgentTransport:
		base, _ := t.next.(*http.Transport)
		return base
	case *tracedTransport:
		return BaseTransport(&http.Client{Transport: t.base})
	}
	return nil
}

// tracedTransport keeps a handle on the wrapped transport so BaseTransport
// can see through the otelhttp layer.
type tracedTransport struct {
	base http.RoundTripper
	next http.RoundTripper
}

func (t *tracedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req)
}

func spanName(_ string, r *http.Request) string {
	return "HTTP " + r.Method + " " + r.URL.Host
}

type userAgentTransport struct {
	next      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	return t.next.RoundTrip(clone)
}
