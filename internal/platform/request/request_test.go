// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package requestutil_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/murmur/internal/platform/request"
	"github.com/taibuivan/murmur/internal/platform/sec"
)

/*
TestBearerToken accepts both header forms.
*/
func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   string
	}{
		{"authorization", "Authorization", "Bearer abc.def", "abc.def"},
		{"authorization_lowercase_scheme", "Authorization", "bearer abc.def", "abc.def"},
		{"authorization_other_scheme", "Authorization", "Basic dXNlcg==", ""},
		{"bare_header", "Bearer", "abc.def", "abc.def"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				request.Header.Set(tt.header, tt.value)
			}
			assert.Equal(t, tt.want, requestutil.BearerToken(request))
		})
	}
}

/*
TestWildcard captures multi-segment locations through chi.
*/
func TestWildcard(t *testing.T) {
	var captured string

	router := chi.NewRouter()
	router.Get("/comments/*", func(writer http.ResponseWriter, request *http.Request) {
		captured = requestutil.Wildcard(request)
	})

	request := httptest.NewRequest(http.MethodGet, "/comments/blog.example.com/posts/hello%20world/", nil)
	router.ServeHTTP(httptest.NewRecorder(), request)

	assert.Equal(t, "blog.example.com/posts/hello world", captured)
}

/*
TestRequiredIdentity rejects anonymous callers.
*/
func TestRequiredIdentity(t *testing.T) {
	request := httptest.NewRequest(http.MethodPut, "/user", nil)

	_, err := requestutil.RequiredIdentity(request)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	identity := sec.Identity{Email: "bob@example.com", DisplayName: "Bob"}
	request = request.WithContext(ctxutil.WithIdentity(request.Context(), identity))

	got, err := requestutil.RequiredIdentity(request)
	require.NoError(t, err)
	assert.Equal(t, identity, got)
}

/*
TestDecodeJSON rejects malformed payloads.
*/
func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Email string `json:"email"`
	}

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co"}`))
	require.NoError(t, requestutil.DecodeJSON(request, &payload))
	assert.Equal(t, "a@b.co", payload.Email)

	request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
	err := requestutil.DecodeJSON(request, &payload)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

/*
TestQueryHelpers parse typed values with fallbacks.
*/
func TestQueryHelpers(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/?from=5&latest_first=false&bad=x", nil)

	from, err := requestutil.QueryInt64(request, "from", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), from)

	to, err := requestutil.QueryInt64(request, "to", 99)
	require.NoError(t, err)
	assert.Equal(t, int64(99), to)

	latest, err := requestutil.QueryBool(request, "latest_first", true)
	require.NoError(t, err)
	assert.False(t, latest)

	_, err = requestutil.QueryInt64(request, "bad", 0)
	assert.Error(t, err)

	assert.True(t, requestutil.HasQuery(request, "to", "from"))
	assert.False(t, requestutil.HasQuery(request, "order"))
}
