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
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/logprobe/internal/config"
	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTokenIssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)

	token, err := issuer.Issue("operator@example.com", ScopeWrite)
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "operator@example.com", claims.Subject)
	assert.Equal(t, ScopeWrite, claims.Scope)
}

func TestTokenVerifyRejections(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	other := NewTokenIssuer("different", time.Hour)

	token, err := issuer.Issue("op", ScopeRead)
	require.NoError(t, err)

	var authErr *errors.AuthError
	_, err = other.Verify(token)
	require.ErrorAs(t, err, &authErr, "wrong signing secret")

	_, err = issuer.Verify("not-a-token")
	require.ErrorAs(t, err, &authErr)

	// Expired token.
	expired := NewTokenIssuer("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err = expired.Issue("op", ScopeRead)
	require.NoError(t, err)
	_, err = issuer.Verify(token)
	require.ErrorAs(t, err, &authErr)

	_, err = issuer.Issue("op", Scope("admin"))
	require.Error(t, err)
}

func operatorHandler(t *testing.T, o *Operator) http.Handler {
	t.Helper()
	return o.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestOperatorWrap(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", time.Hour)
	o := NewOperator("s3cret", issuer, discardLogger())
	handler := operatorHandler(t, o)

	do := func(method, token string) int {
		req := httptest.NewRequest(method, "/v1/tracesets", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// No token.
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, ""))
	// Garbage token.
	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "nope"))
	// Raw secret gets write access.
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "s3cret"))

	writeToken, err := issuer.Issue("op", ScopeWrite)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, writeToken))

	readToken, err := issuer.Issue("op", ScopeRead)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(http.MethodGet, readToken))
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, readToken),
		"read scope cannot mutate")
}

func TestOperatorWrapDisabled(t *testing.T) {
	o := NewOperator("", NewTokenIssuer("", time.Hour), discardLogger())
	handler := o.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ScopeWrite, ScopeFrom(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/tracesets", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type staticAuthenticator struct {
	probe *model.Probe
}

func (s *staticAuthenticator) AuthenticateKey(_ context.Context, key string) (*model.Probe, error) {
	if s.probe != nil && key == "pk_good_key" {
		return s.probe, nil
	}
	return nil, &errors.AuthError{Reason: "bad key"}
}

func TestProbeMiddleware(t *testing.T) {
	probe := &model.Probe{ID: "p1"}
	mw := Probe(&staticAuthenticator{probe: probe}, discardLogger())
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := ProbeFrom(r.Context())
		require.NotNil(t, got)
		assert.Equal(t, "p1", got.ID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/probe/heartbeat", nil)
	req.Header.Set("Authorization", "Bearer pk_good_key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/probe/heartbeat", nil)
	req.Header.Set("Authorization", "Bearer pk_bad_key")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/probe/heartbeat", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(config.LimitsConfig{
		Enabled:                true,
		ProbeRequestsPerSecond: 1,
		ProbeBurst:             2,
	})

	assert.True(t, rl.Allow("p1"))
	assert.True(t, rl.Allow("p1"))
	assert.False(t, rl.Allow("p1"), "burst exhausted")
	assert.True(t, rl.Allow("p2"), "limits are per probe")

	off := NewRateLimiter(config.LimitsConfig{Enabled: false})
	for i := 0; i < 100; i++ {
		assert.True(t, off.Allow("p1"))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(config.LimitsConfig{
		Enabled:                true,
		ProbeRequestsPerSecond: 1,
		ProbeBurst:             1,
	})
	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	probe := &model.Probe{ID: "p1"}
	do := func() int {
		req := httptest.NewRequest(http.MethodPost, "/v1/probe/heartbeat", nil)
		ctx := context.WithValue(req.Context(), probeKeyType{}, probe)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
