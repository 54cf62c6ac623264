// SPDX-License-Identifier: MIT

package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewClient_Timeouts(t *testing.T) {
	tests := []struct {
		name          string
		timeout       time.Duration
		opts          []Option
		wantTimeout   time.Duration
		wantHandshake time.Duration
		wantHeader    time.Duration
	}{
		{"zero uses default", 0, nil, defaultClientTimeout, defaultDialTimeout, defaultResponseHeaderTimeout},
		{"long is capped per phase", 10 * time.Second, nil, 10 * time.Second, defaultDialTimeout, defaultResponseHeaderTimeout},
		{"short applies to every phase", 1500 * time.Millisecond, []Option{WithUserAgent("")}, 1500 * time.Millisecond, 1500 * time.Millisecond, 1500 * time.Millisecond},
		{"traced client", 2 * time.Second, []Option{WithTracing()}, 2 * time.Second, 2 * time.Second, 2 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.timeout, tt.opts...)
			transport := BaseTransport(client)
			if transport == nil {
				t.Fatalf("transport type = %T, want wrapped *http.Transport", client.Transport)
			}
			if client.Timeout != tt.wantTimeout {
				t.Errorf("timeout = %v, want %v", client.Timeout, tt.wantTimeout)
			}
			if transport.TLSHandshakeTimeout != tt.wantHandshake {
				t.Errorf("TLSHandshakeTimeout = %v, want %v", transport.TLSHandshakeTimeout, tt.wantHandshake)
			}
			if transport.ResponseHeaderTimeout != tt.wantHeader {
				t.Errorf("ResponseHeaderTimeout = %v, want %v", transport.ResponseHeaderTimeout, tt.wantHeader)
			}
			if transport.MaxIdleConnsPerHost != defaultMaxIdleConnsPerHost {
				t.Errorf("MaxIdleConnsPerHost = %d, want %d", transport.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost)
			}
		})
	}
}

func TestNewClient_SetsUserAgent(t *testing.T) {
	got := make(chan string, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got <- r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	client := NewClient(time.Second, WithUserAgent("amvhub-test"))

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if ua := <-got; ua != "amvhub-test" {
		t.Errorf("User-Agent = %q, want amvhub-test", ua)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "caller")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	_ = resp.Body.Close()
	if ua := <-got; ua != "caller" {
		t.Errorf("User-Agent = %q, want caller", ua)
	}
}

func TestNewClient_TracingRecordsClientSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := NewClient(time.Second, WithTracing()).Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if want := "HTTP GET " + srv.Listener.Addr().String(); spans[0].Name() != want {
		t.Errorf("span name = %q, want %q", spans[0].Name(), want)
	}
}
