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

// CreateTraceSet creates a trace set and its trace state under the
// given key. The key is the fleet's public handle; it must be unique.
func (c *Controller) CreateTraceSet(ctx context.Context, key string) (*model.TraceSet, error) {
	if key == "" {
		return nil, &errors.ValidationError{Field: "key", Message: "must not be empty"}
	}
	now := c.now()

	var created *model.TraceSet
	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		existing, err := c.store.GetTraceSetByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return &errors.ConflictError{Resource: "trace set", ID: key, Reason: "key already in use"}
		}

		ts := &model.TraceSet{ID: uuid.NewString(), Key: key, CreatedAt: now, UpdatedAt: now}
		if err := c.store.InsertTraceSet(ctx, ts); err != nil {
			return err
		}
		st := &model.TraceState{ID: uuid.NewString(), Key: key, TraceSetID: ts.ID, CreatedAt: now}
		if err := c.store.InsertTraceState(ctx, st); err != nil {
			return err
		}
		created = ts
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "trace set created", log.TraceSetKey, key)
	return created, nil
}

// GetTraceSet looks up a trace set by key.
func (c *Controller) GetTraceSet(ctx context.Context, key string) (*model.TraceSet, error) {
	ts, err := c.store.GetTraceSetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if ts == nil {
		return nil, &errors.NotFoundError{Resource: "trace set", ID: key}
	}
	return ts, nil
}

// resolveTraceSet loads the trace set and its trace state by key.
func (c *Controller) resolveTraceSet(ctx context.Context, key string) (*model.TraceSet, *model.TraceState, error) {
	ts, err := c.store.GetTraceSetByKey(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	if ts == nil {
		return nil, nil, &errors.NotFoundError{Resource: "trace set", ID: key}
	}
	st, err := c.store.GetTraceStateForTraceSet(ctx, ts.ID)
	if err != nil {
		return nil, nil, err
	}
	if st == nil {
		return nil, nil, &errors.NotFoundError{Resource: "trace state", ID: key}
	}
	return ts, st, nil
}
