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

const directiveColumns = `id, trace_set_id, module, function, statement, active, version, created_at, updated_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDirective(row rowScanner) (*model.Directive, error) {
	var d model.Directive
	var active int
	var created, updated int64
	var deleted sql.NullInt64
	err := row.Scan(&d.ID, &d.TraceSetID, &d.Module, &d.Function, &d.Statement,
		&active, &d.Version, &created, &updated, &deleted)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan directive", err)
	}
	d.Active = active != 0
	d.CreatedAt = fromNanos(created)
	d.UpdatedAt = fromNanos(updated)
	d.DeletedAt = fromNullNanos(deleted)
	return &d, nil
}

// InsertDirective persists a new directive.
func (s *Store) InsertDirective(ctx context.Context, d *model.Directive) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO directives (`+directiveColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TraceSetID, d.Module, d.Function, d.Statement,
		boolToInt(d.Active), d.Version, toNanos(d.CreatedAt), toNanos(d.UpdatedAt),
		toNullNanos(d.DeletedAt))
	if err != nil {
		return storeErr("insert directive", err)
	}
	return nil
}

// GetDirective returns the directive with the given id, or nil.
// Soft-deleted directives are returned; callers that require a live
// directive must check Deleted themselves (failure reporting needs to
// resolve deleted directives for version lookup).
func (s *Store) GetDirective(ctx context.Context, id string) (*model.Directive, error) {
	return scanDirective(s.q(ctx).QueryRowContext(ctx,
		`SELECT `+directiveColumns+` FROM directives WHERE id = ?`, id))
}

// UpdateDirective persists statement, active flag, version and
// updated-at for an existing directive.
func (s *Store) UpdateDirective(ctx context.Context, d *model.Directive) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE directives SET statement = ?, active = ?, version = ?, updated_at = ? WHERE id = ?`,
		d.Statement, boolToInt(d.Active), d.Version, toNanos(d.UpdatedAt), d.ID)
	if err != nil {
		return storeErr("update directive", err)
	}
	return nil
}

// SoftDeleteDirective marks the directive deleted at the given time.
func (s *Store) SoftDeleteDirective(ctx context.Context, id string, at time.Time) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`UPDATE directives SET deleted_at = ?, updated_at = ? WHERE id = ?`,
		toNanos(at), toNanos(at), id)
	if err != nil {
		return storeErr("soft delete directive", err)
	}
	return nil
}

// ListActiveDirectives returns the desired set for a trace set: active,
// not soft-deleted, most recently updated first. Ties are broken by
// insertion order so the result is stable.
func (s *Store) ListActiveDirectives(ctx context.Context, traceSetID string) ([]model.Directive, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT `+directiveColumns+` FROM directives
		 WHERE trace_set_id = ? AND active = 1 AND deleted_at IS NULL
		 ORDER BY updated_at DESC, rowid ASC`, traceSetID)
	if err != nil {
		return nil, storeErr("list active directives", err)
	}
	defer rows.Close()

	var out []model.Directive
	for rows.Next() {
		d, err := scanDirective(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list active directives", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
