// SPDX-License-Identifier: MIT

package kv

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/amvhub/internal/log"
	"github.com/ManuGH/amvhub/internal/metrics"
	"github.com/ManuGH/amvhub/internal/platform/httpx"
	"github.com/ManuGH/amvhub/internal/telemetry"
)

// DefaultRetries is the number of extra attempts made after a 5xx response.
const DefaultRetries = 2

const maxErrorBody = 1 << 10

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	BaseURL    string
	Token      string
	Retries    int          // extra attempts on 5xx; negative values are treated as 0
	HTTPClient *http.Client // optional; defaults to a hardened httpx client
	Reporter   telemetry.Reporter
	Logger     zerolog.Logger
}

// RESTClient talks to an Upstash-style REST key-value API:
//
//	GET    {base}/get/{key}  -> {"result": "<json>" | null}
//	POST   {base}/set/{key}  <- {"value": "<json>", "ex": seconds}
//	DELETE {base}/del/{key}
type RESTClient struct {
	base     string
	token    string
	retries  int
	http     *http.Client
	reporter telemetry.Reporter
	logger   zerolog.Logger
}

// NewRESTClient creates a REST key-value client.
func NewRESTClient(cfg RESTConfig) *RESTClient {
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	client := cfg.HTTPClient
	if client == nil {
		client = httpx.NewClient(10 * time.Second)
	}
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = telemetry.NopReporter{}
	}
	return &RESTClient{
		base:     strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.Token,
		retries:  retries,
		http:     client,
		reporter: reporter,
		logger:   cfg.Logger,
	}
}

type getResponse struct {
	Result *string `json:"result"`
}

type setRequest struct {
	Value string `json:"value"`
	EX    int64  `json:"ex,omitempty"`
}

// GetJSON implements Store. A 204 response or a null/empty result means absent.
func (c *RESTClient) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}
	path := "get/" + url.PathEscape(key)
	body, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		metrics.IncKVRequest("get", "error")
		return false, err
	}
	if status == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		metrics.IncKVRequest("get", "miss")
		return false, nil
	}

	var resp getResponse
	if err := decode(key, body, &resp); err != nil {
		c.report(ctx, err, path, status, "failed to parse KV envelope")
		metrics.IncKVRequest("get", "error")
		return false, err
	}
	if resp.Result == nil || *resp.Result == "" {
		metrics.IncKVRequest("get", "miss")
		return false, nil
	}
	if err := decode(key, []byte(*resp.Result), dst); err != nil {
		c.report(ctx, err, path, status, "failed to parse JSON response from KV")
		metrics.IncKVRequest("get", "error")
		return false, err
	}
	metrics.IncKVRequest("get", "ok")
	return true, nil
}

// SetJSON implements Store.
func (c *RESTClient) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := encode(value)
	if err != nil {
		return err
	}
	req := setRequest{Value: string(data), EX: ttlSeconds(ttl)}
	if _, _, err := c.do(ctx, http.MethodPost, "set/"+url.PathEscape(key), req); err != nil {
		metrics.IncKVRequest("set", "error")
		return err
	}
	metrics.IncKVRequest("set", "ok")
	return nil
}

// Delete implements Store.
func (c *RESTClient) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if _, _, err := c.do(ctx, http.MethodDelete, "del/"+url.PathEscape(key), nil); err != nil {
		metrics.IncKVRequest("delete", "error")
		return err
	}
	metrics.IncKVRequest("delete", "ok")
	return nil
}

// Ping issues a cheap read to verify that the service answers.
func (c *RESTClient) Ping(ctx context.Context) error {
	_, _, err := c.do(ctx, http.MethodGet, "get/"+url.PathEscape("amvhub:ping"), nil)
	return err
}

// do executes one logical request, retrying 5xx responses up to c.retries
// extra times. Transport errors and other non-2xx statuses fail immediately.
func (c *RESTClient) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, 0, &RequestError{Path: path, Err: err}
		}
	}

	logger := xglog.WithContext(ctx, c.logger)
	for attempt := 0; ; attempt++ {
		var body io.Reader
		if encoded != nil {
			body = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+path, body)
		if err != nil {
			return nil, 0, &RequestError{Path: path, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")

		res, err := c.http.Do(req)
		if err != nil {
			rerr := &RequestError{Path: path, Err: err}
			c.report(ctx, rerr, path, 0, "")
			return nil, 0, rerr
		}
		data, readErr := io.ReadAll(io.LimitReader(res.Body, 8<<20))
		_ = res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode > 299 {
			if res.StatusCode >= 500 && attempt < c.retries {
				metrics.IncKVRetry()
				logger.Debug().
					Str(xglog.FieldEvent, "kv.retry").
					Str(xglog.FieldPath, path).
					Int(xglog.FieldStatus, res.StatusCode).
					Int("attempt", attempt+1).
					Msg("retrying kv request after server error")
				continue
			}
			snippet := data
			if len(snippet) > maxErrorBody {
				snippet = snippet[:maxErrorBody]
			}
			rerr := &RequestError{Path: path, Status: res.StatusCode, Body: strings.TrimSpace(string(snippet))}
			c.report(ctx, rerr, path, res.StatusCode, "")
			return nil, res.StatusCode, rerr
		}
		if readErr != nil {
			rerr := &RequestError{Path: path, Status: res.StatusCode, Err: readErr}
			c.report(ctx, rerr, path, res.StatusCode, "")
			return nil, res.StatusCode, rerr
		}
		if res.StatusCode == http.StatusNoContent {
			return nil, res.StatusCode, nil
		}
		return data, res.StatusCode, nil
	}
}

func (c *RESTClient) report(ctx context.Context, err error, path string, status int, message string) {
	extra := map[string]any{"retries": c.retries}
	if message != "" {
		extra["message"] = message
	}
	c.reporter.Capture(ctx, err, telemetry.Capture{
		Context: "kv",
		Tags:    map[string]string{"path": path, "status": strconv.Itoa(status)},
		Extra:   extra,
	})
}
