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

package telemetry

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/logprobe/internal/config"
)

func TestSetupDisabled(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, config.TelemetryConfig{Enabled: false, Exporter: "none", SampleRate: 1.0})
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	require.NotNil(t, p.Metrics())
	require.NotNil(t, p.MetricsHandler())
}

func TestSetupUnknownExporter(t *testing.T) {
	_, err := Setup(context.Background(), config.TelemetryConfig{
		Enabled:    true,
		Exporter:   "carrier-pigeon",
		SampleRate: 1.0,
	})
	require.Error(t, err)
}

func TestMetricsEndpointServesRecordedInstruments(t *testing.T) {
	ctx := context.Background()
	p, err := Setup(ctx, config.TelemetryConfig{SampleRate: 1.0})
	require.NoError(t, err)
	defer p.Shutdown(ctx)

	m := p.Metrics()
	m.RecordMutation(ctx, "create_directive", 3, 12*time.Millisecond)
	m.RecordDelivery(ctx, "success")
	m.RecordFailureReport(ctx, true)
	m.RecordHeartbeat(ctx)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	p.MetricsHandler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "logprobe_mutations")
	assert.Contains(t, body, "logprobe_delivery_reports")
	assert.Contains(t, body, "logprobe_failure_reports")
	assert.Contains(t, body, "logprobe_heartbeats")
}

func TestNilMetricsRecordsNothing(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	// Must not panic.
	m.RecordMutation(ctx, "create_directive", 1, time.Millisecond)
	m.RecordDelivery(ctx, "error")
	m.RecordFailureReport(ctx, false)
	m.RecordHeartbeat(ctx)
}
