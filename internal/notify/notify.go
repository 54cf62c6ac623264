// SPDX-License-Identifier: MIT

// Package notify delivers short operator notifications (new recruitment
// submissions) to Discord and email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// MaxTextLength caps message bodies and field values, in characters.
const MaxTextLength = 1500

const ellipsis = "…"

// ErrNotConfigured is returned by a transport that lacks credentials or a
// destination. Fanout skips such transports.
var ErrNotConfigured = errors.New("notify: transport not configured")

// Field is a labeled value rendered as an embed field or a table row.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is a transport-neutral notification.
type Message struct {
	Title  string
	Fields []Field
	Body   string
}

// Notifier sends a Message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Transport is a named Notifier.
type Transport interface {
	Notifier
	Name() string
}

// DeliveryError describes a rejected delivery.
type DeliveryError struct {
	Transport string
	Status    int
	Body      string
}

func (e *DeliveryError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s delivery failed with status %d: %s", e.Transport, e.Status, e.Body)
	}
	return fmt.Sprintf("%s delivery failed with status %d", e.Transport, e.Status)
}

// Truncate shortens s to at most limit characters, ending with "…" when
// anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + ellipsis
}

// clamp returns a copy of msg with every text capped at MaxTextLength.
func clamp(msg Message) Message {
	out := Message{
		Title:  Truncate(msg.Title, 256),
		Body:   Truncate(msg.Body, MaxTextLength),
		Fields: make([]Field, len(msg.Fields)),
	}
	for i, f := range msg.Fields {
		out.Fields[i] = Field{
			Name:   Truncate(f.Name, 256),
			Value:  Truncate(f.Value, MaxTextLength),
			Inline: f.Inline,
		}
	}
	return out
}
