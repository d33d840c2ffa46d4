// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth implements the daemon's two authentication surfaces:
// operator bearer tokens (static secret or signed JWT with a scope
// claim) and probe bearer keys, plus per-probe rate limiting.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tombee/logprobe/pkg/errors"
)

// Scope is the access level carried by an operator token.
type Scope string

const (
	// ScopeRead allows read-only API access.
	ScopeRead Scope = "read"
	// ScopeWrite allows full API access.
	ScopeWrite Scope = "write"
)

const tokenIssuer = "logprobed"

// Claims is the verified content of an operator token.
type Claims struct {
	Subject string
	Scope   Scope
}

// TokenIssuer mints and verifies HS256 operator tokens signed with the
// configured operator secret.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. ttl bounds minted token
// lifetime.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue mints a token for the given subject and scope.
func (i *TokenIssuer) Issue(subject string, scope Scope) (string, error) {
	if scope != ScopeRead && scope != ScopeWrite {
		return "", fmt.Errorf("unknown scope %q", scope)
	}
	now := i.now()
	claims := jwt.MapClaims{
		"iss":   tokenIssuer,
		"sub":   subject,
		"scope": string(scope),
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(i.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses and validates a token, returning its claims.
func (i *TokenIssuer) Verify(raw string) (*Claims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, &errors.AuthError{Reason: fmt.Sprintf("invalid token: %v", err)}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &errors.AuthError{Reason: "unexpected claims type"}
	}
	subject, _ := claims["sub"].(string)
	scopeStr, _ := claims["scope"].(string)
	scope := Scope(scopeStr)
	if scope != ScopeRead && scope != ScopeWrite {
		return nil, &errors.AuthError{Reason: "missing or unknown scope claim"}
	}
	return &Claims{Subject: subject, Scope: scope}, nil
}
