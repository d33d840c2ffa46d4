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

package store

import (
	"context"
	"database/sql"

	"github.com/tombee/logprobe/internal/model"
)

const deliveryColumns = `id, change_entry_id, probe_id, state, message, created_at, updated_at`

func scanDelivery(row rowScanner) (*model.DeliveryRecord, error) {
	var d model.DeliveryRecord
	var state string
	var created, updated int64
	err := row.Scan(&d.ID, &d.ChangeEntryID, &d.ProbeID, &state, &d.Message, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan delivery record", err)
	}
	d.State = model.DeliveryState(state)
	d.CreatedAt = fromNanos(created)
	d.UpdatedAt = fromNanos(updated)
	return &d, nil
}

// InsertDeliveryRecords persists a batch of delivery records. The batch
// is the fan-out of a single change entry across the live fleet and is
// expected to run inside the mutation's transaction.
func (s *Store) InsertDeliveryRecords(ctx context.Context, records []model.DeliveryRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := s.q(ctx)
	for i := range records {
		d := &records[i]
		_, err := q.ExecContext(ctx,
			`INSERT INTO delivery_records (`+deliveryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.ChangeEntryID, d.ProbeID, string(d.State), d.Message,
			toNanos(d.CreatedAt), toNanos(d.UpdatedAt))
		if err != nil {
			return storeErr("insert delivery record", err)
		}
	}
	return nil
}

// GetDeliveryRecord returns the delivery record with the given id, or nil.
func (s *Store) GetDeliveryRecord(ctx context.Context, id string) (*model.DeliveryRecord, error) {
	return scanDelivery(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+deliveryColumns+` FROM delivery_records WHERE id = ?`, id))
}

// UpdateDeliveryState moves a delivery record to a new state.
func (s *Store) UpdateDeliveryState(ctx context.Context, d *model.DeliveryRecord) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE delivery_records SET state = ?, message = ?, updated_at = ? WHERE id = ?`,
		string(d.State), d.Message, toNanos(d.UpdatedAt), d.ID)
	if err != nil {
		return storeErr("update delivery state", err)
	}
	return nil
}

// ListDeliveriesByChange returns all delivery records for one change
// entry, in fan-out order.
func (s *Store) ListDeliveriesByChange(ctx context.Context, changeEntryID string) ([]model.DeliveryRecord, error) {
	return s.listDeliveries(ctx,
		`SELECT `+deliveryColumns+` FROM delivery_records
		 WHERE change_entry_id = ? ORDER BY rowid ASC`, changeEntryID)
}

// ListPendingDeliveriesForProbe returns the probe's delivery records
// still in the sent state, oldest first.
func (s *Store) ListPendingDeliveriesForProbe(ctx context.Context, probeID string) ([]model.DeliveryRecord, error) {
	return s.listDeliveries(ctx,
		`SELECT `+deliveryColumns+` FROM delivery_records
		 WHERE probe_id = ? AND state = ? ORDER BY rowid ASC`,
		probeID, string(model.DeliverySent))
}

func (s *Store) listDeliveries(ctx context.Context, query string, args ...any) ([]model.DeliveryRecord, error) {
	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list delivery records", err)
	}
	defer rows.Close()

	var out []model.DeliveryRecord
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list delivery records", err)
	}
	return out, nil
}
