// SPDX-License-Identifier: MIT

package notify

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/amvhub/internal/platform/httpx"
)

const (
	// DefaultResendEndpoint is the Resend send-email API.
	DefaultResendEndpoint = "https://api.resend.com/emails"
	// DefaultFromAddress is Resend's shared onboarding sender.
	DefaultFromAddress = "AMV Hub <onboarding@resend.dev>"
)

var emailTemplate = template.Must(template.New("email").Parse(`<h2>{{.Title}}</h2>
{{- if .Fields}}
<table cellpadding="4" style="border-collapse:collapse">
{{- range .Fields}}
<tr><th align="left">{{.Name}}</th><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- if .Body}}
<p style="white-space:pre-wrap">{{.Body}}</p>
{{- end}}
`))

// ResendConfig configures the Resend email transport.
type ResendConfig struct {
	APIKey     string
	To         []string
	From       string
	Endpoint   string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Resend sends messages as HTML email through the Resend API.
type Resend struct {
	apiKey   string
	to       []string
	from     string
	endpoint string
	client   *http.Client
	guard    *guard
}

// NewResend returns a Resend transport. Without an API key or recipients
// it reports ErrNotConfigured.
func NewResend(cfg ResendConfig) *Resend {
	client := cfg.HTTPClient
	if client == nil {
		client = httpx.NewClient(10 * time.Second)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultResendEndpoint
	}
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = DefaultFromAddress
	}
	var to []string
	for _, addr := range cfg.To {
		if addr = strings.TrimSpace(addr); addr != "" {
			to = append(to, addr)
		}
	}
	return &Resend{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		to:       to,
		from:     from,
		endpoint: endpoint,
		client:   client,
		guard: newGuard(guardConfig{
			name:   "resend",
			rate:   rate.Limit(2),
			burst:  2,
			logger: cfg.Logger,
		}),
	}
}

// Name implements Transport.
func (r *Resend) Name() string { return "resend" }

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Notify implements Notifier.
func (r *Resend) Notify(ctx context.Context, msg Message) error {
	if r.apiKey == "" || len(r.to) == 0 {
		return ErrNotConfigured
	}
	msg = clamp(msg)

	var html bytes.Buffer
	if err := emailTemplate.Execute(&html, msg); err != nil {
		return err
	}
	body, err := json.Marshal(resendPayload{From: r.from, To: r.to, Subject: msg.Title, HTML: html.String()})
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.apiKey)
	return r.guard.do(ctx, func(ctx context.Context) error {
		return postJSON(ctx, r.client, r.Name(), r.endpoint, body, header)
	})
}
