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

// Package model defines the entities of the log-injection control plane:
// trace sets, directives, probes, the append-only change log, per-probe
// delivery records and deduplicated failure records.
package model

import (
	"fmt"
	"time"
)

// TraceSet is the logical grouping (fleet/tenant boundary) that owns
// directives and is the join point for probes.
type TraceSet struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TraceState is the root of the change log for a trace set. Probes
// register against a trace state; change entries hang off it.
type TraceState struct {
	ID         string    `json:"id"`
	Key        string    `json:"key"`
	TraceSetID string    `json:"trace_set_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Directive is a single log-injection instruction: a traced location
// (module + function), a statement template that may embed {variable}
// placeholders, and an active flag. Directives are soft-deleted so that
// delivery and failure history stays addressable.
//
// Version starts at 0 and is bumped on every content-changing update
// (statement or active flag). A no-op update leaves it untouched.
type Directive struct {
	ID         string     `json:"id"`
	TraceSetID string     `json:"trace_set_id"`
	Module     string     `json:"module"`
	Function   string     `json:"function"`
	Statement  string     `json:"statement"`
	Active     bool       `json:"active"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the directive has been soft-deleted.
func (d *Directive) Deleted() bool {
	return d.DeletedAt != nil
}

// Probe is a running agent embedded in a monitored process. Probes are
// never hard-deleted; an explicit disconnect marks them closed.
type Probe struct {
	ID            string    `json:"id"`
	TraceStateID  string    `json:"trace_state_id"`
	Description   string    `json:"description,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Closed        bool      `json:"closed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// KeyHash is the bcrypt hash of the probe's bearer secret. Never
	// serialized in API responses.
	KeyHash string `json:"-"`
}

// AliveWithin reports whether the probe heartbeated within the given
// window of now. Closed probes are never alive.
func (p *Probe) AliveWithin(window time.Duration, now time.Time) bool {
	if p.Closed || p.LastHeartbeat.IsZero() {
		return false
	}
	return now.Sub(p.LastHeartbeat) <= window
}

// ChangeType tags a change log entry with the kind of desired-state
// mutation it records.
type ChangeType string

const (
	ChangeCreateDirective ChangeType = "create_directive"
	ChangeUpdateDirective ChangeType = "update_directive"
	ChangeDeleteDirective ChangeType = "delete_directive"
	ChangeCreateProbe     ChangeType = "create_probe"
	ChangeDeleteProbe     ChangeType = "delete_probe"
)

// directiveChange reports whether the change type refers to a directive.
func (t ChangeType) directiveChange() bool {
	switch t {
	case ChangeCreateDirective, ChangeUpdateDirective, ChangeDeleteDirective:
		return true
	}
	return false
}

// probeChange reports whether the change type refers to a probe.
func (t ChangeType) probeChange() bool {
	return t == ChangeCreateProbe || t == ChangeDeleteProbe
}

// Valid reports whether t is a known change type.
func (t ChangeType) Valid() bool {
	return t.directiveChange() || t.probeChange()
}

// ChangeEntry is one record of the append-only change log. Exactly one
// of DirectiveID and ProbeID is set, matching the change type; the
// typed constructors below are the only way control code builds one.
type ChangeEntry struct {
	ID           string     `json:"id"`
	TraceStateID string     `json:"trace_state_id"`
	Type         ChangeType `json:"type"`
	DirectiveID  *string    `json:"directive_id,omitempty"`
	ProbeID      *string    `json:"probe_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// NewDirectiveChange builds a change entry referencing a directive.
func NewDirectiveChange(t ChangeType, traceStateID, directiveID string) (ChangeEntry, error) {
	if !t.directiveChange() {
		return ChangeEntry{}, fmt.Errorf("change type %q does not reference a directive", t)
	}
	return ChangeEntry{
		TraceStateID: traceStateID,
		Type:         t,
		DirectiveID:  &directiveID,
	}, nil
}

// NewProbeChange builds a change entry referencing a probe.
func NewProbeChange(t ChangeType, traceStateID, probeID string) (ChangeEntry, error) {
	if !t.probeChange() {
		return ChangeEntry{}, fmt.Errorf("change type %q does not reference a probe", t)
	}
	return ChangeEntry{
		TraceStateID: traceStateID,
		Type:         t,
		ProbeID:      &probeID,
	}, nil
}

// Validate checks the one-of {directive, probe} invariant against the
// change type. Entries loaded from the store are validated on read.
func (e *ChangeEntry) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unknown change type %q", e.Type)
	}
	switch {
	case e.Type.directiveChange() && (e.DirectiveID == nil || e.ProbeID != nil):
		return fmt.Errorf("change %s of type %s must reference exactly one directive", e.ID, e.Type)
	case e.Type.probeChange() && (e.ProbeID == nil || e.DirectiveID != nil):
		return fmt.Errorf("change %s of type %s must reference exactly one probe", e.ID, e.Type)
	}
	return nil
}

// DeliveryState is the outcome state of a delivery record.
// SENT transitions at most once, to SUCCESS or ERROR.
type DeliveryState string

const (
	DeliverySent    DeliveryState = "sent"
	DeliverySuccess DeliveryState = "success"
	DeliveryError   DeliveryState = "error"
)

// Terminal reports whether the state admits no further transition.
func (s DeliveryState) Terminal() bool {
	return s == DeliverySuccess || s == DeliveryError
}

// Valid reports whether s is a known delivery state.
func (s DeliveryState) Valid() bool {
	return s == DeliverySent || s.Terminal()
}

// DeliveryRecord tracks one probe's enactment of one change entry. One
// record exists per (change entry, probe) pair for every probe that was
// live at fan-out time.
type DeliveryRecord struct {
	ID            string        `json:"id"`
	ChangeEntryID string        `json:"change_entry_id"`
	ProbeID       string        `json:"probe_id"`
	State         DeliveryState `json:"state"`
	Message       string        `json:"message,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// FailureRecord is a probe-reported failure. Reports are deduplicated:
// by (directive, directive version, message) when a directive is
// referenced, otherwise by (message, trace set of the reporting probe).
type FailureRecord struct {
	ID               string    `json:"id"`
	ProbeID          string    `json:"probe_id"`
	Message          string    `json:"message"`
	DirectiveID      *string   `json:"directive_id,omitempty"`
	DirectiveVersion *int      `json:"directive_version,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
