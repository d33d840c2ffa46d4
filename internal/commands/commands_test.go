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

package commands

import (
	"bytes"
	"encoding/json"
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

// runCommand executes the CLI against a test daemon and returns stdout.
func runCommand(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--server", server, "--token", testSecret}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTraceSetCreateAndGet(t *testing.T) {
	srv := newTestDaemon(t)

	out, err := runCommand(t, srv.URL, "traceset", "create", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "created trace set acme")

	out, err = runCommand(t, srv.URL, "traceset", "get", "acme", "--json")
	require.NoError(t, err)
	var ts model.TraceSet
	require.NoError(t, json.Unmarshal([]byte(out), &ts))
	assert.Equal(t, "acme", ts.Key)
}

func TestDirectiveLifecycleCommands(t *testing.T) {
	srv := newTestDaemon(t)

	_, err := runCommand(t, srv.URL, "traceset", "create", "acme")
	require.NoError(t, err)

	out, err := runCommand(t, srv.URL, "directive", "create", "acme",
		"--module", "billing/invoice", "--function", "Charge",
		"--statement", "charging {amount}", "--json")
	require.NoError(t, err)
	var d model.Directive
	require.NoError(t, json.Unmarshal([]byte(out), &d))
	assert.Equal(t, 0, d.Version)

	out, err = runCommand(t, srv.URL, "directive", "list", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "billing/invoice")

	out, err = runCommand(t, srv.URL, "directive", "list", "acme", "--module", "payments/**")
	require.NoError(t, err)
	assert.Contains(t, out, "no active directives")

	out, err = runCommand(t, srv.URL, "directive", "update", d.ID,
		"--statement", "charging {amount} {currency}")
	require.NoError(t, err)
	assert.Contains(t, out, "now v1")

	_, err = runCommand(t, srv.URL, "directive", "update", d.ID)
	require.Error(t, err, "update with no flags is rejected locally")

	out, err = runCommand(t, srv.URL, "directive", "delete", d.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted directive")

	_, err = runCommand(t, srv.URL, "directive", "delete", d.ID)
	require.Error(t, err, "double delete surfaces the API error")
}

func TestProbeRegisterPrintsKeyOnce(t *testing.T) {
	srv := newTestDaemon(t)

	_, err := runCommand(t, srv.URL, "traceset", "create", "acme")
	require.NoError(t, err)

	out, err := runCommand(t, srv.URL, "probe", "register", "acme",
		"--description", "payments pod")
	require.NoError(t, err)
	assert.Contains(t, out, "pk_")

	out, err = runCommand(t, srv.URL, "probe", "list", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "payments pod")
	assert.NotContains(t, out, "pk_", "list never shows keys")
}

func TestChangeLogCommand(t *testing.T) {
	srv := newTestDaemon(t)

	_, err := runCommand(t, srv.URL, "traceset", "create", "acme")
	require.NoError(t, err)
	_, err = runCommand(t, srv.URL, "directive", "create", "acme",
		"--module", "m", "--function", "f", "--statement", "log {x}")
	require.NoError(t, err)

	out, err := runCommand(t, srv.URL, "traceset", "log", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "create_directive")
}

func TestVersionCommand(t *testing.T) {
	srv := newTestDaemon(t)

	SetVersion("1.2.3", "abc123", "2026-01-01")
	out, err := runCommand(t, srv.URL, "version", "--json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "abc123", info["commit"])
}

func TestBadTokenSurfacesAuthError(t *testing.T) {
	srv := newTestDaemon(t)

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--server", srv.URL, "--token", "wrong", "traceset", "get", "acme"})
	require.Error(t, root.Execute())
}
