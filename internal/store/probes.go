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
	"time"

	"github.com/tombee/logprobe/internal/model"
)

const probeColumns = `id, trace_state_id, key_hash, description, last_heartbeat, closed, created_at, updated_at`

func scanProbe(row rowScanner) (*model.Probe, error) {
	var p model.Probe
	var closed int
	var heartbeat, created, updated int64
	err := row.Scan(&p.ID, &p.TraceStateID, &p.KeyHash, &p.Description,
		&heartbeat, &closed, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan probe", err)
	}
	p.Closed = closed != 0
	p.LastHeartbeat = fromNanos(heartbeat)
	p.CreatedAt = fromNanos(created)
	p.UpdatedAt = fromNanos(updated)
	return &p, nil
}

// InsertProbe persists a new probe.
func (s *Store) InsertProbe(ctx context.Context, p *model.Probe) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO probes (`+probeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.TraceStateID, p.KeyHash, p.Description,
		toNanos(p.LastHeartbeat), boolToInt(p.Closed), toNanos(p.CreatedAt), toNanos(p.UpdatedAt))
	if err != nil {
		return storeErr("insert probe", err)
	}
	return nil
}

// GetProbe returns the probe with the given id, or nil.
func (s *Store) GetProbe(ctx context.Context, id string) (*model.Probe, error) {
	return scanProbe(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+probeColumns+` FROM probes WHERE id = ?`, id))
}

// UpdateProbeHeartbeat sets the probe's last heartbeat time.
func (s *Store) UpdateProbeHeartbeat(ctx context.Context, id string, at time.Time) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE probes SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		toNanos(at), toNanos(at), id)
	if err != nil {
		return storeErr("update probe heartbeat", err)
	}
	return nil
}

// CloseProbe marks the probe closed. Closed probes stay addressable but
// no longer receive fan-out.
func (s *Store) CloseProbe(ctx context.Context, id string, at time.Time) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE probes SET closed = 1, updated_at = ? WHERE id = ?`,
		toNanos(at), id)
	if err != nil {
		return storeErr("close probe", err)
	}
	return nil
}

// FindLiveProbeIDs returns the ids of open probes in the trace set's
// fleet whose heartbeat is at or after the cutoff.
func (s *Store) FindLiveProbeIDs(ctx context.Context, traceSetID string, cutoff time.Time) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT p.id FROM probes p
		 JOIN trace_states ts ON p.trace_state_id = ts.id
		 WHERE ts.trace_set_id = ? AND p.closed = 0 AND p.last_heartbeat >= ?
		 ORDER BY p.rowid ASC`, traceSetID, toNanos(cutoff))
	if err != nil {
		return nil, storeErr("find live probes", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeErr("find live probes", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("find live probes", err)
	}
	return ids, nil
}

// ListProbes returns all probes in the trace set's fleet, oldest first.
func (s *Store) ListProbes(ctx context.Context, traceSetID string) ([]model.Probe, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT p.id, p.trace_state_id, p.key_hash, p.description, p.last_heartbeat, p.closed, p.created_at, p.updated_at
		 FROM probes p
		 JOIN trace_states ts ON p.trace_state_id = ts.id
		 WHERE ts.trace_set_id = ?
		 ORDER BY p.rowid ASC`, traceSetID)
	if err != nil {
		return nil, storeErr("list probes", err)
	}
	defer rows.Close()

	var out []model.Probe
	for rows.Next() {
		p, err := scanProbe(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list probes", err)
	}
	return out, nil
}

// TraceSetIDForProbe resolves the trace set a probe belongs to via its
// trace state. Returns "" when the probe does not exist.
func (s *Store) TraceSetIDForProbe(ctx context.Context, probeID string) (string, error) {
	var id string
	err := s.q(ctx).QueryRowContext(ctx,
		`SELECT ts.trace_set_id FROM probes p
		 JOIN trace_states ts ON p.trace_state_id = ts.id
		 WHERE p.id = ?`, probeID).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", storeErr("resolve probe trace set", err)
	}
	return id, nil
}
