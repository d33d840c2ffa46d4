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

// InsertTraceSet persists a new trace set.
func (s *Store) InsertTraceSet(ctx context.Context, ts *model.TraceSet) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO trace_sets (id, key, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		ts.ID, ts.Key, toNanos(ts.CreatedAt), toNanos(ts.UpdatedAt))
	if err != nil {
		return storeErr("insert trace set", err)
	}
	return nil
}

// InsertTraceState persists a new trace state.
func (s *Store) InsertTraceState(ctx context.Context, st *model.TraceState) error {
	_, err := s.q(ctx).ExecContext(ctx,
		`INSERT INTO trace_states (id, key, trace_set_id, created_at) VALUES (?, ?, ?, ?)`,
		st.ID, st.Key, st.TraceSetID, toNanos(st.CreatedAt))
	if err != nil {
		return storeErr("insert trace state", err)
	}
	return nil
}

func scanTraceSet(row *sql.Row) (*model.TraceSet, error) {
	var ts model.TraceSet
	var created, updated int64
	if err := row.Scan(&ts.ID, &ts.Key, &created, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan trace set", err)
	}
	ts.CreatedAt = fromNanos(created)
	ts.UpdatedAt = fromNanos(updated)
	return &ts, nil
}

// GetTraceSetByKey returns the trace set with the given key, or nil.
func (s *Store) GetTraceSetByKey(ctx context.Context, key string) (*model.TraceSet, error) {
	return scanTraceSet(s.q(ctx).QueryRowContext(ctx,
		`SELECT id, key, created_at, updated_at FROM trace_sets WHERE key = ?`, key))
}

// GetTraceSet returns the trace set with the given id, or nil.
func (s *Store) GetTraceSet(ctx context.Context, id string) (*model.TraceSet, error) {
	return scanTraceSet(s.q(ctx).QueryRowContext(ctx,
		`SELECT id, key, created_at, updated_at FROM trace_sets WHERE id = ?`, id))
}

func scanTraceState(row *sql.Row) (*model.TraceState, error) {
	var st model.TraceState
	var created int64
	if err := row.Scan(&st.ID, &st.Key, &st.TraceSetID, &created); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, storeErr("scan trace state", err)
	}
	st.CreatedAt = fromNanos(created)
	return &st, nil
}

// GetTraceStateByKey returns the trace state with the given key, or nil.
func (s *Store) GetTraceStateByKey(ctx context.Context, key string) (*model.TraceState, error) {
	return scanTraceState(s.q(ctx).QueryRowContext(ctx,
		`SELECT id, key, trace_set_id, created_at FROM trace_states WHERE key = ?`, key))
}

// GetTraceState returns the trace state with the given id, or nil.
func (s *Store) GetTraceState(ctx context.Context, id string) (*model.TraceState, error) {
	return scanTraceState(s.q(ctx).QueryRowContext(ctx,
		`SELECT id, key, trace_set_id, created_at FROM trace_states WHERE id = ?`, id))
}

// GetTraceStateForTraceSet returns the trace state owned by the given
// trace set, or nil.
func (s *Store) GetTraceStateForTraceSet(ctx context.Context, traceSetID string) (*model.TraceState, error) {
	return scanTraceState(s.q(ctx).QueryRowContext(ctx,
		`SELECT id, key, trace_set_id, created_at FROM trace_states WHERE trace_set_id = ?`, traceSetID))
}
