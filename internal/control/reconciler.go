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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/logprobe/internal/log"
	"github.com/tombee/logprobe/internal/model"
	"github.com/tombee/logprobe/pkg/errors"
)

// CreateDirectiveInput is the payload for CreateDirective.
type CreateDirectiveInput struct {
	TraceSetKey string
	Module      string
	Function    string
	Statement   string
}

func (in *CreateDirectiveInput) validate() error {
	switch {
	case in.TraceSetKey == "":
		return &errors.ValidationError{Field: "trace_set_key", Message: "must not be empty"}
	case in.Module == "":
		return &errors.ValidationError{Field: "module", Message: "must not be empty"}
	case in.Function == "":
		return &errors.ValidationError{Field: "function", Message: "must not be empty"}
	case in.Statement == "":
		return &errors.ValidationError{Field: "statement", Message: "must not be empty"}
	}
	return nil
}

// UpdateDirectiveInput is the payload for UpdateDirective. Nil fields
// are left untouched.
type UpdateDirectiveInput struct {
	ID        string
	Statement *string
	Active    *bool
}

// CreateDirective adds a directive to a trace set's desired state. The
// directive insert, the change log entry and the delivery fan-out
// commit atomically.
func (c *Controller) CreateDirective(ctx context.Context, in CreateDirectiveInput) (*model.Directive, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "control.CreateDirective",
		trace.WithAttributes(attribute.String("trace_set", in.TraceSetKey)))
	defer span.End()

	now := c.now()
	var created *model.Directive
	var fanout int

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		ts, st, err := c.resolveTraceSet(ctx, in.TraceSetKey)
		if err != nil {
			return err
		}

		d := &model.Directive{
			ID:         uuid.NewString(),
			TraceSetID: ts.ID,
			Module:     in.Module,
			Function:   in.Function,
			Statement:  in.Statement,
			Active:     true,
			Version:    0,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := c.store.InsertDirective(ctx, d); err != nil {
			return err
		}

		entry, err := model.NewDirectiveChange(model.ChangeCreateDirective, st.ID, d.ID)
		if err != nil {
			return err
		}
		fanout, err = c.appendChange(ctx, ts.ID, entry, now)
		if err != nil {
			return err
		}
		created = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordMutation(ctx, string(model.ChangeCreateDirective), fanout, c.now().Sub(now))
	c.logger.InfoContext(ctx, "directive created",
		log.TraceSetKey, in.TraceSetKey,
		log.DirectiveKey, created.ID,
		"module", in.Module,
		"function", in.Function)
	return created, nil
}

// UpdateDirective changes a directive's statement and/or active flag.
// The version bumps only when content actually changes; a no-op update
// is permitted and still produces a change log entry plus fan-out, so
// the audit trail records every attempt.
func (c *Controller) UpdateDirective(ctx context.Context, in UpdateDirectiveInput) (*model.Directive, error) {
	if in.ID == "" {
		return nil, &errors.ValidationError{Field: "id", Message: "must not be empty"}
	}
	if in.Statement != nil && *in.Statement == "" {
		return nil, &errors.ValidationError{Field: "statement", Message: "must not be empty"}
	}

	ctx, span := c.tracer.Start(ctx, "control.UpdateDirective",
		trace.WithAttributes(attribute.String("directive_id", in.ID)))
	defer span.End()

	now := c.now()
	var updated *model.Directive
	var fanout int

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		d, err := c.store.GetDirective(ctx, in.ID)
		if err != nil {
			return err
		}
		if d == nil || d.Deleted() {
			return &errors.NotFoundError{Resource: "directive", ID: in.ID}
		}

		changed := false
		if in.Statement != nil && *in.Statement != d.Statement {
			d.Statement = *in.Statement
			changed = true
		}
		if in.Active != nil && *in.Active != d.Active {
			d.Active = *in.Active
			changed = true
		}
		if changed {
			d.Version++
			d.UpdatedAt = now
			if err := c.store.UpdateDirective(ctx, d); err != nil {
				return err
			}
		}

		st, err := c.store.GetTraceStateForTraceSet(ctx, d.TraceSetID)
		if err != nil {
			return err
		}
		if st == nil {
			return &errors.NotFoundError{Resource: "trace state", ID: d.TraceSetID}
		}

		entry, err := model.NewDirectiveChange(model.ChangeUpdateDirective, st.ID, d.ID)
		if err != nil {
			return err
		}
		fanout, err = c.appendChange(ctx, d.TraceSetID, entry, now)
		if err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordMutation(ctx, string(model.ChangeUpdateDirective), fanout, c.now().Sub(now))
	c.logger.InfoContext(ctx, "directive updated",
		log.DirectiveKey, updated.ID,
		"version", updated.Version)
	return updated, nil
}

// DeleteDirective soft-deletes a directive so it leaves the desired
// set but stays resolvable for failure reporting.
func (c *Controller) DeleteDirective(ctx context.Context, id string) (*model.Directive, error) {
	if id == "" {
		return nil, &errors.ValidationError{Field: "id", Message: "must not be empty"}
	}

	ctx, span := c.tracer.Start(ctx, "control.DeleteDirective",
		trace.WithAttributes(attribute.String("directive_id", id)))
	defer span.End()

	now := c.now()
	var deleted *model.Directive
	var fanout int

	err := c.store.WithTx(ctx, func(ctx context.Context) error {
		d, err := c.store.GetDirective(ctx, id)
		if err != nil {
			return err
		}
		if d == nil || d.Deleted() {
			return &errors.NotFoundError{Resource: "directive", ID: id}
		}

		if err := c.store.SoftDeleteDirective(ctx, id, now); err != nil {
			return err
		}
		d.DeletedAt = &now
		d.UpdatedAt = now

		st, err := c.store.GetTraceStateForTraceSet(ctx, d.TraceSetID)
		if err != nil {
			return err
		}
		if st == nil {
			return &errors.NotFoundError{Resource: "trace state", ID: d.TraceSetID}
		}

		entry, err := model.NewDirectiveChange(model.ChangeDeleteDirective, st.ID, d.ID)
		if err != nil {
			return err
		}
		fanout, err = c.appendChange(ctx, d.TraceSetID, entry, now)
		if err != nil {
			return err
		}
		deleted = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordMutation(ctx, string(model.ChangeDeleteDirective), fanout, c.now().Sub(now))
	c.logger.InfoContext(ctx, "directive deleted", log.DirectiveKey, id)
	return deleted, nil
}
