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

	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

// ReportOutcome transitions a delivery record from SENT to a terminal
// state on behalf of the reporting probe. Re-reporting the same
// terminal outcome is an idempotent no-op; reporting a different
// outcome after a terminal one fails with a conflict. A record owned by
// another probe is treated as not found so ownership is never leaked.
func (c *Controller) ReportOutcome(ctx context.Context, probeID, deliveryID string, outcome model.DeliveryState, message string) error {
	if !outcome.Terminal() {
		return &errors.ValidationError{Field: "outcome", Message: "must be success or error"}
	}
	now := c.now()

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		record, err := c.store.GetDeliveryRecord(ctx, deliveryID)
		if err != nil {
			return err
		}
		if record == nil || record.ProbeID != probeID {
			return &errors.NotFoundError{Resource: "delivery record", ID: deliveryID}
		}

		if record.State.Terminal() {
			if record.State == outcome {
				return nil
			}
			return &errors.ConflictError{
				Resource: "delivery record",
				ID:       deliveryID,
				Reason:   "outcome already recorded as " + string(record.State),
			}
		}

		record.State = outcome
		record.Message = message
		record.UpdatedAt = now
		return c.store.UpdateDeliveryState(ctx, record)
	})
	if err != nil {
		return err
	}

	c.metrics.RecordDelivery(ctx, string(outcome))
	return nil
}

// ListDeliveriesForChange returns the delivery records fanned out for
// one change entry.
func (c *Controller) ListDeliveriesForChange(ctx context.Context, changeEntryID string) ([]model.DeliveryRecord, error) {
	return c.store.ListDeliveriesByChange(ctx, changeEntryID)
}

// PendingDeliveries returns the probe's undelivered (SENT) records,
// oldest first. Probes poll this to find changes they have not yet
// enacted.
func (c *Controller) PendingDeliveries(ctx context.Context, probeID string) ([]model.DeliveryRecord, error) {
	return c.store.ListPendingDeliveriesForProbe(ctx, probeID)
}
