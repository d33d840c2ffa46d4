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
	"time"

	"github.com/google/uuid"

	"github.com/tombee/logprobe/internal/log"
	"github.com/tombee/logprobe/internal/model"
)

// appendChange finalizes a change entry, persists it and fans out one
// SENT delivery record per probe live within the fan-out window. It
// must run inside the mutation's transaction so the change log and the
// delivery records commit (or roll back) with the mutation itself.
// Returns the number of probes fanned out to.
func (c *Controller) appendChange(ctx context.Context, traceSetID string, entry model.ChangeEntry, now time.Time) (int, error) {
	entry.ID = uuid.NewString()
	entry.CreatedAt = now
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	if err := c.store.InsertChangeEntry(ctx, &entry); err != nil {
		return 0, err
	}

	cutoff := now.Add(-c.windows.Fanout())
	probeIDs, err := c.store.FindLiveProbeIDs(ctx, traceSetID, cutoff)
	if err != nil {
		return 0, err
	}

	records := make([]model.DeliveryRecord, 0, len(probeIDs))
	for _, probeID := range probeIDs {
		records = append(records, model.DeliveryRecord{
			ID:            uuid.NewString(),
			ChangeEntryID: entry.ID,
			ProbeID:       probeID,
			State:         model.DeliverySent,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}
	if err := c.store.InsertDeliveryRecords(ctx, records); err != nil {
		return 0, err
	}

	c.logger.DebugContext(ctx, "change fanned out",
		log.ChangeKey, entry.ID,
		log.EventKey, string(entry.Type),
		"probes", len(probeIDs))
	return len(probeIDs), nil
}
