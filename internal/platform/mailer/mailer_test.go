// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package mailer_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/murmur/internal/platform/mailer"
)

/*
TestHTTPRelay_Send posts the relay payload and accepts 201.
*/
func TestHTTPRelay_Send(t *testing.T) {
	var received map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(request.Body).Decode(&received))
		writer.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	relay := mailer.NewHTTPRelay(server.URL, time.Second)
	err := relay.Send(context.Background(), mailer.Message{
		To: "bob@example.com", Subject: "Verify", Plain: "123456", HTML: "<b>123456</b>",
	})
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", received["recipient"])
	assert.Equal(t, "Verify", received["subject"])
	assert.Equal(t, "123456", received["plain"])
	assert.Equal(t, "<b>123456</b>", received["html"])
}

/*
TestHTTPRelay_Rejected treats any status other than 201 as a failure.
*/
func TestHTTPRelay_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	relay := mailer.NewHTTPRelay(server.URL, time.Second)
	err := relay.Send(context.Background(), mailer.Message{To: "bob@example.com"})
	assert.Error(t, err)
}

/*
TestHTTPRelay_Unreachable reports transport errors.
*/
func TestHTTPRelay_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	relay := mailer.NewHTTPRelay(endpoint, time.Second)
	err := relay.Send(context.Background(), mailer.Message{To: "bob@example.com"})
	assert.Error(t, err)
}

/*
TestVerificationMessage embeds the code and the TTL in both bodies.
*/
func TestVerificationMessage(t *testing.T) {
	message, err := mailer.VerificationMessage("bob@example.com", "Verify your email", "042917", 10*time.Minute)
	require.NoError(t, err)

	assert.Equal(t, "bob@example.com", message.To)
	assert.Equal(t, "Verify your email", message.Subject)
	assert.Contains(t, message.Plain, "042917")
	assert.Contains(t, message.HTML, "042917")
	assert.Contains(t, message.HTML, "10 minutes")
}

/*
TestLogMailer never fails.
*/
func TestLogMailer(t *testing.T) {
	logMailer := mailer.NewLogMailer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.NoError(t, logMailer.Send(context.Background(), mailer.Message{To: "bob@example.com"}))
}
