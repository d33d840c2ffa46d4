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
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the control-plane instruments. A nil *Metrics is valid
// and records nothing, so services never need to check for telemetry.
type Metrics struct {
	mutations       metric.Int64Counter
	fanoutSize      metric.Int64Histogram
	reconcileTime   metric.Float64Histogram
	deliveryReports metric.Int64Counter
	failureReports  metric.Int64Counter
	heartbeats      metric.Int64Counter
}

// NewMetrics creates the instrument set on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err error

	m.mutations, err = meter.Int64Counter("logprobe.mutations",
		metric.WithDescription("Desired-state mutations applied, by change type"))
	if err != nil {
		return nil, err
	}
	m.fanoutSize, err = meter.Int64Histogram("logprobe.fanout.size",
		metric.WithDescription("Number of live probes a change was fanned out to"))
	if err != nil {
		return nil, err
	}
	m.reconcileTime, err = meter.Float64Histogram("logprobe.reconcile.duration",
		metric.WithDescription("Wall time of a mutation transaction"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	m.deliveryReports, err = meter.Int64Counter("logprobe.delivery.reports",
		metric.WithDescription("Delivery outcome reports, by resulting state"))
	if err != nil {
		return nil, err
	}
	m.failureReports, err = meter.Int64Counter("logprobe.failure.reports",
		metric.WithDescription("Probe failure reports, split by dedup outcome"))
	if err != nil {
		return nil, err
	}
	m.heartbeats, err = meter.Int64Counter("logprobe.heartbeats",
		metric.WithDescription("Probe heartbeats received"))
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordMutation records one applied mutation with its fan-out size and
// transaction duration.
func (m *Metrics) RecordMutation(ctx context.Context, changeType string, fanout int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("change_type", changeType))
	m.mutations.Add(ctx, 1, attrs)
	m.fanoutSize.Record(ctx, int64(fanout), attrs)
	m.reconcileTime.Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
}

// RecordDelivery records one delivery outcome report.
func (m *Metrics) RecordDelivery(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.deliveryReports.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// RecordFailureReport records one failure report and whether it was
// deduplicated against an existing record.
func (m *Metrics) RecordFailureReport(ctx context.Context, deduped bool) {
	if m == nil {
		return
	}
	m.failureReports.Add(ctx, 1, metric.WithAttributes(attribute.Bool("deduped", deduped)))
}

// RecordHeartbeat records one probe heartbeat.
func (m *Metrics) RecordHeartbeat(ctx context.Context) {
	if m == nil {
		return
	}
	m.heartbeats.Add(ctx, 1)
}
