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

package control

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

// DesiredSet returns the active, non-deleted directives of a trace set,
// most recently updated first with stable ties. moduleGlob, when
// non-empty, filters by module path glob ("billing/**" style).
func (c *Controller) DesiredSet(ctx context.Context, traceSetKey, moduleGlob string) ([]model.Directive, error) {
	if moduleGlob != "" && !doublestar.ValidatePattern(moduleGlob) {
		return nil, &errors.ValidationError{Field: "module", Message: "invalid glob pattern"}
	}

	ts, _, err := c.resolveTraceSet(ctx, traceSetKey)
	if err != nil {
		return nil, err
	}

	directives, err := c.store.ListActiveDirectives(ctx, ts.ID)
	if err != nil {
		return nil, err
	}
	if moduleGlob == "" {
		return directives, nil
	}

	filtered := directives[:0]
	for _, d := range directives {
		ok, err := doublestar.Match(moduleGlob, d.Module)
		if err != nil {
			return nil, &errors.ValidationError{Field: "module", Message: "invalid glob pattern"}
		}
		if ok {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// DesiredSetForProbe is the probe-facing view: the desired set of the
// trace set the probe belongs to.
func (c *Controller) DesiredSetForProbe(ctx context.Context, probeID string) ([]model.Directive, error) {
	traceSetID, err := c.store.TraceSetIDForProbe(ctx, probeID)
	if err != nil {
		return nil, err
	}
	if traceSetID == "" {
		return nil, &errors.NotFoundError{Resource: "probe", ID: probeID}
	}
	return c.store.ListActiveDirectives(ctx, traceSetID)
}

// ChangeLog returns the trace set's audit trail, oldest first. A zero
// limit returns everything.
func (c *Controller) ChangeLog(ctx context.Context, traceSetKey string, limit int) ([]model.ChangeEntry, error) {
	_, st, err := c.resolveTraceSet(ctx, traceSetKey)
	if err != nil {
		return nil, err
	}
	return c.store.ListChangeEntries(ctx, st.ID, limit)
}

// ListProbes returns every probe in the trace set's fleet, including
// closed ones.
func (c *Controller) ListProbes(ctx context.Context, traceSetKey string) ([]model.Probe, error) {
	ts, _, err := c.resolveTraceSet(ctx, traceSetKey)
	if err != nil {
		return nil, err
	}
	return c.store.ListProbes(ctx, ts.ID)
}
