// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token encoding.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, token signing,
// random generation) from the domain logic. The domain packages only see
// [TokenCodec] and the helpers in this package.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned by [TokenCodec.Decode] for any token that does
// not carry a valid signature, issuer, subject and nonce.
var ErrMalformedToken = errors.New("sec: malformed access token")

// minSecretLength is the shortest HS256 key accepted.
const minSecretLength = 32

// AccessClaims represents the payload embedded inside an access token.
//
// The subject is the owning email, so the token alone tells us which user
// record to check. The ID (jti) is a random nonce that makes every token
// issued to the same email distinct.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// TokenCodec encodes and decodes access tokens using HS256.
//
// It carries no expiry claim: token lifetime is governed by the session's
// last-used timestamp in storage, which is renewed on every use.
type TokenCodec struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewTokenCodec creates a new TokenCodec.
func NewTokenCodec(secret, issuer string) (*TokenCodec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("sec: session secret must be at least %d bytes", minSecretLength)
	}

	return &TokenCodec{
		secret: []byte(secret),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
		),
	}, nil
}

// Encode signs a new token binding email to a random nonce.
func (codec *TokenCodec) Encode(email, nonce string, issuedAt time.Time) (string, error) {
	if email == "" || nonce == "" {
		return "", fmt.Errorf("sec: email and nonce are required")
	}

	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  email,
			Issuer:   codec.issuer,
			ID:       nonce,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(codec.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Decode verifies the signature and returns the email the token is bound to.
func (codec *TokenCodec) Decode(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMalformedToken
	}

	claims := &AccessClaims{}
	token, err := codec.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return codec.secret, nil
	})
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.Subject == "" || claims.ID == "" {
		return "", ErrMalformedToken
	}

	return claims.Subject, nil
}
