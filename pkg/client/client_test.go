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

package client

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/logprobe/internal/config"
	"github.com/tombee/logprobe/internal/control"
	"github.com/tombee/logprobe/internal/daemon/api"
	"github.com/tombee/logprobe/internal/daemon/auth"
	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/internal/store"
	"github.com/tombee/logprobe/pkg/errors"
)

const testSecret = "operator-secret"

func newTestDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	st, err := store.Open(config.StoreConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	windows := config.NewDynamic(config.LivenessConfig{
		SelfReport: 2 * time.Minute,
		Fanout:     5 * time.Minute,
	})
	ctrl := control.New(st, windows, nil, logger)
	issuer := auth.NewTokenIssuer(testSecret, time.Hour)

	srv := httptest.NewServer(api.NewRouter(api.Config{
		Controller:  ctrl,
		Operator:    auth.NewOperator(testSecret, issuer, logger),
		TokenIssuer: issuer,
		RateLimiter: auth.NewRateLimiter(config.LimitsConfig{Enabled: false}),
		Logger:      logger,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not-a-url", "")
	require.Error(t, err)
	_, err = New("ftp://example.com", "")
	require.Error(t, err)
}

func TestOperatorRoundTrip(t *testing.T) {
	srv := newTestDaemon(t)
	ctx := context.Background()

	c, err := New(srv.URL, testSecret)
	require.NoError(t, err)

	ts, err := c.CreateTraceSet(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", ts.Key)

	got, err := c.GetTraceSet(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, ts.ID, got.ID)

	d, err := c.CreateDirective(ctx, "acme", "billing/invoice", "Charge", "charging {amount}")
	require.NoError(t, err)
	assert.Equal(t, 0, d.Version)

	list, err := c.ListDirectives(ctx, "acme", "")
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = c.ListDirectives(ctx, "acme", "billing/**")
	require.NoError(t, err)
	require.Len(t, list, 1)

	statement := "charging {amount} {currency}"
	updated, err := c.UpdateDirective(ctx, d.ID, &statement, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Version)

	deleted, err := c.DeleteDirective(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted())

	entries, err := c.ChangeLog(ctx, "acme", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ChangeCreateDirective, entries[0].Type)
	assert.Equal(t, model.ChangeDeleteDirective, entries[2].Type)
}

func TestTypedErrorsSurviveTheWire(t *testing.T) {
	srv := newTestDaemon(t)
	ctx := context.Background()

	c, err := New(srv.URL, testSecret)
	require.NoError(t, err)

	var notFound *errors.NotFoundError
	_, err = c.GetTraceSet(ctx, "ghost")
	require.ErrorAs(t, err, &notFound)

	_, err = c.CreateTraceSet(ctx, "acme")
	require.NoError(t, err)
	var conflict *errors.ConflictError
	_, err = c.CreateTraceSet(ctx, "acme")
	require.ErrorAs(t, err, &conflict)

	var invalid *errors.ValidationError
	_, err = c.CreateDirective(ctx, "acme", "m", "f", "")
	require.ErrorAs(t, err, &invalid)

	bad, err := New(srv.URL, "wrong-token")
	require.NoError(t, err)
	var authErr *errors.AuthError
	_, err = bad.GetTraceSet(ctx, "acme")
	require.ErrorAs(t, err, &authErr)
}

func TestProbeRoundTrip(t *testing.T) {
	srv := newTestDaemon(t)
	ctx := context.Background()

	operator, err := New(srv.URL, testSecret)
	require.NoError(t, err)

	_, err = operator.CreateTraceSet(ctx, "acme")
	require.NoError(t, err)
	info, err := operator.RegisterProbe(ctx, "acme", "payments pod")
	require.NoError(t, err)
	require.NotEmpty(t, info.Key)

	d, err := operator.CreateDirective(ctx, "acme", "m", "f", "log {x}")
	require.NoError(t, err)

	probe, err := New(srv.URL, info.Key)
	require.NoError(t, err)

	hb, err := probe.Heartbeat(ctx)
	require.NoError(t, err)
	assert.True(t, hb.Alive)

	desired, err := probe.DesiredSet(ctx)
	require.NoError(t, err)
	require.Len(t, desired, 1)
	assert.Equal(t, d.ID, desired[0].ID)

	pending, err := probe.PendingDeliveries(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	record := pending[len(pending)-1]

	require.NoError(t, probe.ReportOutcome(ctx, record.ID, model.DeliverySuccess, ""))
	var conflict *errors.ConflictError
	err = probe.ReportOutcome(ctx, record.ID, model.DeliveryError, "late")
	require.ErrorAs(t, err, &conflict)

	failure, err := probe.ReportFailure(ctx, "cannot resolve {x}", &d.ID)
	require.NoError(t, err)
	again, err := probe.ReportFailure(ctx, "cannot resolve {x}", &d.ID)
	require.NoError(t, err)
	assert.Equal(t, failure.ID, again.ID, "dedup holds across the wire")

	failures, err := operator.ListFailures(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, failures, 1)

	probes, err := operator.ListProbes(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, probes, 1)

	require.NoError(t, probe.Disconnect(ctx))
	var authErr *errors.AuthError
	_, err = probe.Heartbeat(ctx)
	require.ErrorAs(t, err, &authErr)
}

func TestIssueToken(t *testing.T) {
	srv := newTestDaemon(t)
	ctx := context.Background()

	c, err := New(srv.URL, testSecret)
	require.NoError(t, err)

	token, err := c.IssueToken(ctx, "ops@example.com", "read")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	reader, err := New(srv.URL, token)
	require.NoError(t, err)
	_, err = reader.CreateTraceSet(ctx, "acme")
	var authErr *errors.AuthError
	require.ErrorAs(t, err, &authErr, "read scope cannot mutate")
}
