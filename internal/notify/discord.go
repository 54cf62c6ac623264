// SPDX-License-Identifier: MIT

package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/amvhub/internal/platform/httpx"
)

const discordEmbedColor = 0x7C3AED

// DiscordConfig configures the Discord webhook transport.
type DiscordConfig struct {
	WebhookURL string
	Username   string
	HTTPClient *http.Client
	Now        func() time.Time
	Logger     zerolog.Logger
}

// Discord posts messages as a single embed to a webhook.
type Discord struct {
	url      string
	username string
	client   *http.Client
	now      func() time.Time
	guard    *guard
}

// NewDiscord returns a Discord transport. An empty WebhookURL yields a
// transport that reports ErrNotConfigured.
func NewDiscord(cfg DiscordConfig) *Discord {
	client := cfg.HTTPClient
	if client == nil {
		client = httpx.NewClient(5 * time.Second)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Discord{
		url:      strings.TrimSpace(cfg.WebhookURL),
		username: cfg.Username,
		client:   client,
		now:      now,
		// Discord webhooks allow 5 requests per 2 seconds.
		guard: newGuard(guardConfig{
			name:   "discord",
			rate:   rate.Every(400 * time.Millisecond),
			burst:  5,
			logger: cfg.Logger,
		}),
	}
}

// Name implements Transport.
func (d *Discord) Name() string { return "discord" }

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields,omitempty"`
	Timestamp   string         `json:"timestamp"`
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Content  string         `json:"content"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Notify implements Notifier.
func (d *Discord) Notify(ctx context.Context, msg Message) error {
	if d.url == "" {
		return ErrNotConfigured
	}
	msg = clamp(msg)

	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       discordEmbedColor,
		Timestamp:   d.now().UTC().Format(time.RFC3339),
	}
	for _, f := range msg.Fields {
		value := f.Value
		if value == "" {
			value = "—"
		}
		embed.Fields = append(embed.Fields, discordField{Name: f.Name, Value: value, Inline: f.Inline})
	}
	body, err := json.Marshal(discordPayload{Username: d.username, Content: msg.Title, Embeds: []discordEmbed{embed}})
	if err != nil {
		return err
	}

	return d.guard.do(ctx, func(ctx context.Context) error {
		return postJSON(ctx, d.client, d.Name(), d.url, body, nil)
	})
}

// postJSON sends body and treats any 2xx as delivered.
func postJSON(ctx context.Context, client *http.Client, transport, url string, body []byte, header http.Header) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &DeliveryError{Transport: transport, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
