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

package config

import (
	"sync/atomic"
	"time"
)

// Dynamic holds the subset of configuration that can change at runtime
// via config reload. Reads are lock-free so the hot reconcile path can
// consult the fan-out window on every mutation.
type Dynamic struct {
	selfReport atomic.Int64 // nanoseconds
	fanout     atomic.Int64 // nanoseconds
}

// NewDynamic creates a Dynamic seeded from the given liveness config.
func NewDynamic(l LivenessConfig) *Dynamic {
	d := &Dynamic{}
	d.Apply(l)
	return d
}

// Apply replaces the dynamic values with those from the given config.
func (d *Dynamic) Apply(l LivenessConfig) {
	d.selfReport.Store(int64(l.SelfReport))
	d.fanout.Store(int64(l.Fanout))
}

// SelfReport returns the probe self-reported liveness window.
func (d *Dynamic) SelfReport() time.Duration {
	return time.Duration(d.selfReport.Load())
}

// Fanout returns the fan-out eligibility window.
func (d *Dynamic) Fanout() time.Duration {
	return time.Duration(d.fanout.Load())
}
