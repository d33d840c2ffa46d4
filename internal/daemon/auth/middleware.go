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

package auth

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tombee/logprobe/internal/model"
)

type scopeKeyType struct{}
type probeKeyType struct{}

// ScopeFrom returns the operator scope stored by the operator
// middleware, or "" when the request was not operator-authenticated.
func ScopeFrom(ctx context.Context) Scope {
	s, _ := ctx.Value(scopeKeyType{}).(Scope)
	return s
}

// ProbeFrom returns the authenticated probe stored by the probe
// middleware, or nil.
func ProbeFrom(ctx context.Context) *model.Probe {
	p, _ := ctx.Value(probeKeyType{}).(*model.Probe)
	return p
}

// bearerToken extracts the bearer token from an Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}

// Operator authenticates operator requests: either the static operator
// secret or a JWT minted from it. Read-scoped tokens may only issue
// safe methods.
type Operator struct {
	secret string
	issuer *TokenIssuer
	logger *slog.Logger
}

// NewOperator creates the operator middleware. An empty secret
// disables operator auth entirely (local development).
func NewOperator(secret string, issuer *TokenIssuer, logger *slog.Logger) *Operator {
	return &Operator{secret: secret, issuer: issuer, logger: logger}
}

// Wrap enforces operator authentication on the wrapped handler.
func (o *Operator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if o.secret == "" {
			// Auth disabled: everything runs with write scope.
			ctx := context.WithValue(r.Context(), scopeKeyType{}, ScopeWrite)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		token := bearerToken(r)
		if token == "" {
			unauthorized(w)
			return
		}

		scope, ok := o.resolveScope(token)
		if !ok {
			o.logger.WarnContext(r.Context(), "operator authentication failed",
				"path", r.URL.Path)
			unauthorized(w)
			return
		}

		if scope != ScopeWrite && !safeMethod(r.Method) {
			forbidden(w)
			return
		}

		ctx := context.WithValue(r.Context(), scopeKeyType{}, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (o *Operator) resolveScope(token string) (Scope, bool) {
	// The raw operator secret acts as a root bearer key.
	if subtle.ConstantTimeCompare([]byte(token), []byte(o.secret)) == 1 {
		return ScopeWrite, true
	}
	claims, err := o.issuer.Verify(token)
	if err != nil {
		return "", false
	}
	return claims.Scope, true
}

func safeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// ProbeAuthenticator resolves a probe bearer key to a probe.
// *control.Controller satisfies this.
type ProbeAuthenticator interface {
	AuthenticateKey(ctx context.Context, key string) (*model.Probe, error)
}

// Probe authenticates probe requests by their bearer key and stores
// the probe in the request context.
func Probe(authn ProbeAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := bearerToken(r)
			if key == "" {
				unauthorized(w)
				return
			}
			probe, err := authn.AuthenticateKey(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "probe authentication failed", "error", err)
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), probeKeyType{}, probe)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication failed"}`))
}

func forbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"write scope required"}`))
}
