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

	"github.com/google/uuid"

	"github.com/tombee/logprobe/internal/log"
	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

// ReportFailure records a probe-originated failure. Reports are
// deduplicated because probes retry: a failure for the same directive
// version with the same message, or the same general message within the
// same trace set, resolves to the existing record instead of creating a
// duplicate. Duplicate reporting is never an error.
//
// When directiveID is set, the directive's current version is captured
// at report time; soft-deleted directives still resolve so late reports
// against removed directives keep working.
func (c *Controller) ReportFailure(ctx context.Context, probeID, message string, directiveID *string) (*model.FailureRecord, error) {
	if message == "" {
		return nil, &errors.ValidationError{Field: "message", Message: "must not be empty"}
	}
	now := c.now()

	var record *model.FailureRecord
	deduped := false

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		probe, err := c.store.GetProbe(ctx, probeID)
		if err != nil {
			return err
		}
		if probe == nil {
			return &errors.NotFoundError{Resource: "probe", ID: probeID}
		}

		fresh := &model.FailureRecord{
			ID:        uuid.NewString(),
			ProbeID:   probeID,
			Message:   message,
			CreatedAt: now,
			UpdatedAt: now,
		}

		var existing *model.FailureRecord
		if directiveID != nil {
			d, err := c.store.GetDirective(ctx, *directiveID)
			if err != nil {
				return err
			}
			if d == nil {
				return &errors.NotFoundError{Resource: "directive", ID: *directiveID}
			}
			version := d.Version
			fresh.DirectiveID = &d.ID
			fresh.DirectiveVersion = &version

			existing, err = c.store.FindFailureByDirective(ctx, d.ID, version, message)
			if err != nil {
				return err
			}
		} else {
			traceSetID, err := c.store.TraceSetIDForProbe(ctx, probeID)
			if err != nil {
				return err
			}
			existing, err = c.store.FindFailureByMessageAndTraceSet(ctx, traceSetID, message)
			if err != nil {
				return err
			}
		}

		if existing != nil {
			deduped = true
			record = existing
			return c.store.TouchFailureRecord(ctx, existing.ID, now)
		}

		record = fresh
		return c.store.InsertFailureRecord(ctx, fresh)
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordFailureReport(ctx, deduped)
	c.logger.InfoContext(ctx, "failure reported",
		log.ProbeKey, probeID,
		"failure_id", record.ID,
		"deduped", deduped)
	return record, nil
}

// ListFailures returns all failure records across a trace set's fleet,
// newest first.
func (c *Controller) ListFailures(ctx context.Context, traceSetKey string) ([]model.FailureRecord, error) {
	ts, _, err := c.resolveTraceSet(ctx, traceSetKey)
	if err != nil {
		return nil, err
	}
	return c.store.ListFailuresForTraceSet(ctx, ts.ID)
}
