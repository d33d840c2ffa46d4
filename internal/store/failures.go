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

const failureColumns = `id, probe_id, message, directive_id, directive_version, created_at, updated_at`

func scanFailure(row rowScanner) (*model.FailureRecord, error) {
	var f model.FailureRecord
	var directiveID sql.NullString
	var version sql.NullInt64
	var created, updated int64
	err := row.Scan(&f.ID, &f.ProbeID, &f.Message, &directiveID, &version, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan failure record", err)
	}
	if directiveID.Valid {
		f.DirectiveID = &directiveID.String
	}
	if version.Valid {
		v := int(version.Int64)
		f.DirectiveVersion = &v
	}
	f.CreatedAt = fromNanos(created)
	f.UpdatedAt = fromNanos(updated)
	return &f, nil
}

// InsertFailureRecord persists a new failure record.
func (s *Store) InsertFailureRecord(ctx context.Context, f *model.FailureRecord) error {
	var directiveID sql.NullString
	var version sql.NullInt64
	if f.DirectiveID != nil {
		directiveID = sql.NullString{String: *f.DirectiveID, Valid: true}
	}
	if f.DirectiveVersion != nil {
		version = sql.NullInt64{Int64: int64(*f.DirectiveVersion), Valid: true}
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO failure_records (`+failureColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProbeID, f.Message, directiveID, version,
		toNanos(f.CreatedAt), toNanos(f.UpdatedAt))
	if err != nil {
		return storeErr("insert failure record", err)
	}
	return nil
}

// TouchFailureRecord refreshes an existing failure's updated-at, used
// when a duplicate report arrives.
func (s *Store) TouchFailureRecord(ctx context.Context, id string, at time.Time) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE failure_records SET updated_at = ? WHERE id = ?`, toNanos(at), id)
	if err != nil {
		return storeErr("touch failure record", err)
	}
	return nil
}

// FindFailureByDirective returns an existing failure with the same
// directive, version and message, or nil. Used to deduplicate repeated
// reports about the same directive version.
func (s *Store) FindFailureByDirective(ctx context.Context, directiveID string, version int, message string) (*model.FailureRecord, error) {
	return scanFailure(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+failureColumns+` FROM failure_records
		 WHERE directive_id = ? AND directive_version = ? AND message = ?
		 LIMIT 1`, directiveID, version, message))
}

// FindFailureByMessageAndTraceSet returns an existing general failure
// (no directive attached) with the same message anywhere in the trace
// set's fleet, or nil.
func (s *Store) FindFailureByMessageAndTraceSet(ctx context.Context, traceSetID, message string) (*model.FailureRecord, error) {
	return scanFailure(s.q(ctx).QueryRowContext(ctx,
		`SELECT f.id, f.probe_id, f.message, f.directive_id, f.directive_version, f.created_at, f.updated_at
		 FROM failure_records f
		 JOIN probes p ON f.probe_id = p.id
		 JOIN trace_states ts ON p.trace_state_id = ts.id
		 WHERE ts.trace_set_id = ? AND f.message = ? AND f.directive_id IS NULL
		 LIMIT 1`, traceSetID, message))
}

// ListFailuresForTraceSet returns all failures across a trace set's
// fleet, newest first.
func (s *Store) ListFailuresForTraceSet(ctx context.Context, traceSetID string) ([]model.FailureRecord, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT f.id, f.probe_id, f.message, f.directive_id, f.directive_version, f.created_at, f.updated_at
		 FROM failure_records f
		 JOIN probes p ON f.probe_id = p.id
		 JOIN trace_states ts ON p.trace_state_id = ts.id
		 WHERE ts.trace_set_id = ?
		 ORDER BY f.created_at DESC, f.rowid DESC`, traceSetID)
	if err != nil {
		return nil, storeErr("list failure records", err)
	}
	defer rows.Close()

	var out []model.FailureRecord
	for rows.Next() {
		f, err := scanFailure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list failure records", err)
	}
	return out, nil
}
