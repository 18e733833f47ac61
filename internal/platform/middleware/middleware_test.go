// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/ctxutil"
	"github.com/taibuivan/murmur/internal/platform/middleware"
	"github.com/taibuivan/murmur/internal/platform/sec"
)

// # Test Doubles

type stubResolver struct {
	identities map[string]sec.Identity
	err        error
}

func (resolver *stubResolver) Resolve(_ context.Context, token string) (sec.Identity, error) {
	if resolver.err != nil {
		return sec.Identity{}, resolver.err
	}
	if identity, ok := resolver.identities[token]; ok {
		return identity, nil
	}
	return sec.Anonymous(), nil
}

type stubConfig struct {
	development bool
	allowed     string
}

func (cfg stubConfig) IsDevelopment() bool { return cfg.development }
func (cfg stubConfig) IsOriginAllowed(origin string) bool { return origin == cfg.allowed }

func identityEcho(captured *sec.Identity) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		*captured = ctxutil.GetIdentity(request.Context())
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestAuthenticate resolves bearer tokens and falls back to anonymous.
*/
func TestAuthenticate(t *testing.T) {
	bob := sec.Identity{Email: "bob@example.com", DisplayName: "Bob", Color: "#e63946", Initials: "B"}
	resolver := &stubResolver{identities: map[string]sec.Identity{"good": bob}}

	tests := []struct {
		name   string
		header string
		value  string
		want   sec.Identity
	}{
		{"no_token", "", "", sec.Anonymous()},
		{"authorization_header", "Authorization", "Bearer good", bob},
		{"bare_bearer_header", "Bearer", "good", bob},
		{"unknown_token", "Authorization", "Bearer stale", sec.Anonymous()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured sec.Identity
			handler := middleware.Authenticate(resolver)(identityEcho(&captured))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set(tt.header, tt.value)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusOK, recorder.Code)
			assert.Equal(t, tt.want, captured)
		})
	}
}

/*
TestAuthenticate_StoreFailure surfaces store outages instead of hiding them.
*/
func TestAuthenticate_StoreFailure(t *testing.T) {
	resolver := &stubResolver{err: apperr.StoreUnavailable(errors.New("down"))}

	var captured sec.Identity
	handler := middleware.Authenticate(resolver)(identityEcho(&captured))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Authorization", "Bearer good")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}

/*
TestRequireIdentity rejects anonymous callers with 401.
*/
func TestRequireIdentity(t *testing.T) {
	ok := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})
	handler := middleware.RequireIdentity(ok)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/user", nil))
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	request := httptest.NewRequest(http.MethodPut, "/user", nil)
	request = request.WithContext(ctxutil.WithIdentity(request.Context(), sec.Identity{Email: "bob@example.com"}))
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestRateLimit rejects requests once the burst is spent.
*/
func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ok := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	handler := middleware.RateLimit(ctx, 0.001, 2)(ok)

	codes := make([]int, 0, 3)
	for range 3 {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set(constants.HeaderXRealIP, "203.0.113.7")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRealIP, "203.0.113.8")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestCORS allows configured origins only outside development.
*/
func TestCORS(t *testing.T) {
	ok := http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name    string
		cfg     stubConfig
		origin  string
		allowed bool
	}{
		{"development_allows_all", stubConfig{development: true}, "https://anything.test", true},
		{"production_listed", stubConfig{allowed: "https://blog.example.com"}, "https://blog.example.com", true},
		{"production_unlisted", stubConfig{allowed: "https://blog.example.com"}, "https://evil.test", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodOptions, "/api/v1/comments/x", nil)
			request.Header.Set("Origin", tt.origin)
			recorder := httptest.NewRecorder()

			middleware.CORS(tt.cfg)(ok).ServeHTTP(recorder, request)

			assert.Equal(t, http.StatusNoContent, recorder.Code)
			if tt.allowed {
				assert.Equal(t, tt.origin, recorder.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

/*
TestPanicRecovery converts a panic into a 500 response.
*/
func TestPanicRecovery(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	recorder := httptest.NewRecorder()
	middleware.PanicRecovery(logger)(boom).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

/*
TestRequestID echoes a client ID or generates one.
*/
func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "client-id")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "client-id", seen)
}
