// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"

	"github.com/taibuivan/murmur/internal/platform/apperr"
	"github.com/taibuivan/murmur/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/murmur/internal/platform/request"
	"github.com/taibuivan/murmur/internal/platform/respond"
	"github.com/taibuivan/murmur/internal/platform/sec"
)

// IdentityResolver turns a bearer token into the caller's identity.
//
// Implementations return [sec.Anonymous] for missing, malformed, unknown or
// expired tokens, and an error only when the session store itself fails.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (sec.Identity, error)
}

// Authenticate resolves the bearer token of every request.
//
// # Flow
//  1. Read the token from 'Authorization: Bearer <token>' or 'Bearer: <token>'.
//  2. Resolve it via [IdentityResolver] (renewing the session on success).
//  3. Inject the resulting [sec.Identity] and the raw token into the context.
//
// Invalid tokens never fail the request; the caller simply becomes anonymous.
func Authenticate(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token := requestutil.BearerToken(request)

			// ── 1. Anonymous Access ───────────────────────────────────────────
			if token == "" {
				ctx := ctxutil.WithIdentity(request.Context(), sec.Anonymous())
				next.ServeHTTP(writer, request.WithContext(ctx))
				return
			}

			// ── 2. Session Resolution ─────────────────────────────────────────
			identity, err := resolver.Resolve(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, err)
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithIdentity(request.Context(), identity)
			ctx = ctxutil.WithAccessToken(ctx, token)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireIdentity blocks requests that do not carry a live session.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetIdentity(request.Context()).IsAnonymous() {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
