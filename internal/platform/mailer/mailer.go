// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers verification emails.

Murmur does not speak SMTP itself. It hands each message to a relay service
over HTTP, or, in development, writes it to the structured log.

Implementations:

  - HTTPRelay: POSTs a JSON message to a relay endpoint and expects 201 Created.
  - LogMailer: Logs the message (including the code) for local development.
*/
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is a single outbound email with plain and HTML bodies.
type Message struct {
	To      string
	Subject string
	Plain   string
	HTML    string
}

// Mailer sends a message or reports why it could not.
type Mailer interface {
	Send(ctx context.Context, message Message) error
}

// # HTTP Relay

// relayPayload is the wire format accepted by the mail relay.
type relayPayload struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Plain     string `json:"plain"`
	HTML      string `json:"html"`
}

// HTTPRelay posts messages to an HTTP mail relay.
type HTTPRelay struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRelay creates a relay client with the given per-request timeout.
func NewHTTPRelay(endpoint string, timeout time.Duration) *HTTPRelay {
	return &HTTPRelay{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send implements [Mailer].
func (relay *HTTPRelay) Send(ctx context.Context, message Message) error {
	body, err := json.Marshal(relayPayload{
		Recipient: message.To,
		Subject:   message.Subject,
		Plain:     message.Plain,
		HTML:      message.HTML,
	})
	if err != nil {
		return fmt.Errorf("mail_encode_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, relay.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mail_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := relay.client.Do(request)
	if err != nil {
		return fmt.Errorf("mail_relay_unreachable: %w", err)
	}
	defer response.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4<<10))

	if response.StatusCode != http.StatusCreated {
		return fmt.Errorf("mail_relay_rejected: status %d", response.StatusCode)
	}

	return nil
}

// # Development Mailer

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer for local development.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send implements [Mailer].
func (mailer *LogMailer) Send(ctx context.Context, message Message) error {
	mailer.logger.InfoContext(ctx, "mail_logged",
		slog.String("to", message.To),
		slog.String("subject", message.Subject),
		slog.String("plain", message.Plain),
	)
	return nil
}
