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

const changeColumns = `id, trace_state_id, type, directive_id, probe_id, created_at`

func scanChangeEntry(row rowScanner) (*model.ChangeEntry, error) {
	var e model.ChangeEntry
	var typ string
	var directiveID, probeID sql.NullString
	var created int64
	err := row.Scan(&e.ID, &e.TraceStateID, &typ, &directiveID, &probeID, &created)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan change entry", err)
	}
	e.Type = model.ChangeType(typ)
	if directiveID.Valid {
		e.DirectiveID = &directiveID.String
	}
	if probeID.Valid {
		e.ProbeID = &probeID.String
	}
	e.CreatedAt = fromNanos(created)
	return &e, nil
}

// InsertChangeEntry appends an entry to the change log.
func (s *Store) InsertChangeEntry(ctx context.Context, e *model.ChangeEntry) error {
	var directiveID, probeID sql.NullString
	if e.DirectiveID != nil {
		directiveID = sql.NullString{String: *e.DirectiveID, Valid: true}
	}
	if e.ProbeID != nil {
		probeID = sql.NullString{String: *e.ProbeID, Valid: true}
	}
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO change_entries (`+changeColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.TraceStateID, string(e.Type), directiveID, probeID, toNanos(e.CreatedAt))
	if err != nil {
		return storeErr("insert change entry", err)
	}
	return nil
}

// GetChangeEntry returns the change entry with the given id, or nil.
func (s *Store) GetChangeEntry(ctx context.Context, id string) (*model.ChangeEntry, error) {
	return scanChangeEntry(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+changeColumns+` FROM change_entries WHERE id = ?`, id))
}

// ListChangeEntries returns the change log for a trace state, oldest
// first. A zero limit returns everything.
func (s *Store) ListChangeEntries(ctx context.Context, traceStateID string, limit int) ([]model.ChangeEntry, error) {
	query := `SELECT ` + changeColumns + ` FROM change_entries
	 WHERE trace_state_id = ?
	 ORDER BY created_at ASC, rowid ASC`
	args := []any{traceStateID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list change entries", err)
	}
	defer rows.Close()

	var out []model.ChangeEntry
	for rows.Next() {
		e, err := scanChangeEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list change entries", err)
	}
	return out, nil
}
