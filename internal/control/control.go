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

// Package control implements the desired-state reconciliation core: on
// every mutation it persists the change, determines the live probe set,
// appends a change log entry and fans out one delivery record per live
// probe, all inside a single store transaction.
package control

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/logprobe/internal/store"
	"github.com/tombee/logprobe/internal/telemetry"
)

// Windows provides the probe liveness thresholds. They may change at
// runtime, so services read them on every use rather than capturing
// them at construction. *config.Dynamic satisfies this.
type Windows interface {
	// SelfReport is the window for a probe's self-reported liveness.
	SelfReport() time.Duration
	// Fanout is the window selecting which probes receive a change.
	Fanout() time.Duration
}

// Controller is the reconciliation engine plus the probe registry,
// delivery tracker and failure reporter built around one record store.
// Construction is explicit; there is no service container.
type Controller struct {
	store   *store.Store
	windows Windows
	metrics *telemetry.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	// now is swappable so tests can pin the clock.
	now func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates a Controller. metrics may be nil.
func New(st *store.Store, windows Windows, metrics *telemetry.Metrics, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:   st,
		windows: windows,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("logprobe/control"),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
