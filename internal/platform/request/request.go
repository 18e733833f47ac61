// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/constants"
	"github.com/taibuivan/murmur/internal/platform/ctxutil"
	"github.com/taibuivan/murmur/internal/platform/sec"
	"github.com/taibuivan/murmur/internal/platform/validate"
)

// maxBodyBytes bounds JSON request bodies. Comment bodies are capped well below this.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target any) error {
	body := http.MaxBytesReader(nil, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Wildcard retrieves the catch-all "*" segment of the route, unescaped.

Comment locations are page URLs without a scheme (e.g. "blog.example.com/post/1"),
so they span several path segments.
*/
func Wildcard(request *http.Request) string {
	raw := chi.URLParam(request, "*")
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.Trim(raw, "/")
}

/*
Identity returns the caller resolved by the authentication middleware.
Anonymous when no valid token was presented.
*/
func Identity(request *http.Request) sec.Identity {
	return ctxutil.GetIdentity(request.Context())
}

/*
RequiredIdentity ensures the request carries a valid session.

Returns:
  - sec.Identity: The resolved caller
  - error: apperr.Unauthorized if the caller is anonymous
*/
func RequiredIdentity(request *http.Request) (sec.Identity, error) {

	// Get the resolved caller
	identity := ctxutil.GetIdentity(request.Context())

	// If the caller is anonymous, return an error
	if identity.IsAnonymous() {
		return identity, apperr.Unauthorized("Authentication required")
	}

	return identity, nil
}

/*
AccessToken returns the raw bearer token captured by the authentication middleware.
*/
func AccessToken(request *http.Request) string {
	return ctxutil.GetAccessToken(request.Context())
}

/*
BearerToken extracts the token from the request headers.

Accepted forms:
  - Authorization: Bearer <token>
  - Bearer: <token> (sent by the embeddable widget)

Returns "" when neither header is present.
*/
func BearerToken(request *http.Request) string {
	if header := request.Header.Get(constants.HeaderAuthorization); header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if found && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	return strings.TrimSpace(request.Header.Get(constants.HeaderBearer))
}

/*
QueryInt64 parses an integer query parameter, returning fallback when absent.
*/
func QueryInt64(request *http.Request, key string, fallback int64) (int64, error) {
	raw := request.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, validate.RequiredError(key, "Must be an integer")
	}
	return value, nil
}

/*
QueryBool parses a boolean query parameter, returning fallback when absent.
*/
func QueryBool(request *http.Request, key string, fallback bool) (bool, error) {
	raw := request.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, validate.RequiredError(key, "Must be true or false")
	}
	return value, nil
}

/*
HasQuery reports whether any of the keys appear in the query string.
*/
func HasQuery(request *http.Request, keys ...string) bool {
	query := request.URL.Query()
	for _, key := range keys {
		if query.Has(key) {
			return true
		}
	}
	return false
}
