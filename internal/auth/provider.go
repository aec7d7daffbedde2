// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrAuthMissing indicates no usable token is available for an
// authenticated call. Callers surface it immediately and never retry.
var ErrAuthMissing = errors.New("not signed in")

// TokenProvider returns the current bearer token.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// Provider is a TokenProvider with a lifecycle.
type Provider interface {
	TokenProvider
	io.Closer
}

// NewProvider picks the token source from configuration. A token file
// wins over an inline token.
func NewProvider(token, tokenFile string) (Provider, error) {
	if tokenFile != "" {
		fp := NewFileProvider(tokenFile)
		if err := fp.Start(); err != nil {
			return nil, err
		}
		return fp, nil
	}
	return NewStaticProvider(token), nil
}

// =============================================================================
// STATIC PROVIDER
// =============================================================================

// StaticProvider serves a token fixed at construction.
type StaticProvider struct {
	token string
	now   func() time.Time
}

// NewStaticProvider creates a provider for token.
func NewStaticProvider(token string) *StaticProvider {
	return &StaticProvider{token: strings.TrimSpace(token), now: time.Now}
}

// Token implements TokenProvider.
func (p *StaticProvider) Token(ctx context.Context) (string, error) {
	return validate(p.token, p.now())
}

// Close implements io.Closer.
func (p *StaticProvider) Close() error { return nil }

// =============================================================================
// TOKEN CHECKS
// =============================================================================

// validate rejects empty tokens and JWTs whose exp claim has passed.
// Opaque (non-JWT) tokens are passed through; the server is the authority.
func validate(token string, now time.Time) (string, error) {
	if token == "" {
		return "", ErrAuthMissing
	}
	exp, ok := expiry(token)
	if ok && !exp.After(now) {
		return "", fmt.Errorf("%w: token expired at %s", ErrAuthMissing, exp.Format(time.RFC3339))
	}
	return token, nil
}

// expiry reads the exp claim without verifying the signature; the client
// has no key material and only wants to avoid sending a dead token.
func expiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
