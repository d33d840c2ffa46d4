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

package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectiveDeleted(t *testing.T) {
	d := &Directive{ID: "d-1"}
	assert.False(t, d.Deleted())

	now := time.Now()
	d.DeletedAt = &now
	assert.True(t, d.Deleted())
}

func TestProbeAliveWithin(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 5 * time.Minute

	tests := []struct {
		name      string
		heartbeat time.Time
		closed    bool
		want      bool
	}{
		{"just inside window", now.Add(-(4*time.Minute + 59*time.Second)), false, true},
		{"exactly at window", now.Add(-5 * time.Minute), false, true},
		{"just outside window", now.Add(-(5*time.Minute + time.Second)), false, false},
		{"closed probe never alive", now, true, false},
		{"zero heartbeat", time.Time{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Probe{LastHeartbeat: tt.heartbeat, Closed: tt.closed}
			assert.Equal(t, tt.want, p.AliveWithin(window, now))
		})
	}
}

func TestNewDirectiveChange(t *testing.T) {
	for _, ct := range []ChangeType{ChangeCreateDirective, ChangeUpdateDirective, ChangeDeleteDirective} {
		e, err := NewDirectiveChange(ct, "ts-1", "d-1")
		require.NoError(t, err)
		require.NotNil(t, e.DirectiveID)
		assert.Equal(t, "d-1", *e.DirectiveID)
		assert.Nil(t, e.ProbeID)
		assert.NoError(t, e.Validate())
	}

	_, err := NewDirectiveChange(ChangeCreateProbe, "ts-1", "d-1")
	assert.Error(t, err)
}

func TestNewProbeChange(t *testing.T) {
	for _, ct := range []ChangeType{ChangeCreateProbe, ChangeDeleteProbe} {
		e, err := NewProbeChange(ct, "ts-1", "p-1")
		require.NoError(t, err)
		require.NotNil(t, e.ProbeID)
		assert.Equal(t, "p-1", *e.ProbeID)
		assert.Nil(t, e.DirectiveID)
		assert.NoError(t, e.Validate())
	}

	_, err := NewProbeChange(ChangeUpdateDirective, "ts-1", "p-1")
	assert.Error(t, err)
}

func TestChangeEntryValidate(t *testing.T) {
	dID, pID := "d-1", "p-1"

	tests := []struct {
		name    string
		entry   ChangeEntry
		wantErr bool
	}{
		{
			name:  "directive change with directive ref",
			entry: ChangeEntry{Type: ChangeUpdateDirective, DirectiveID: &dID},
		},
		{
			name:    "directive change missing ref",
			entry:   ChangeEntry{Type: ChangeCreateDirective},
			wantErr: true,
		},
		{
			name:    "directive change with both refs",
			entry:   ChangeEntry{Type: ChangeDeleteDirective, DirectiveID: &dID, ProbeID: &pID},
			wantErr: true,
		},
		{
			name:    "probe change with directive ref",
			entry:   ChangeEntry{Type: ChangeCreateProbe, DirectiveID: &dID},
			wantErr: true,
		},
		{
			name:    "unknown type",
			entry:   ChangeEntry{Type: ChangeType("rename_directive"), DirectiveID: &dID},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDeliveryStateTerminal(t *testing.T) {
	assert.False(t, DeliverySent.Terminal())
	assert.True(t, DeliverySuccess.Terminal())
	assert.True(t, DeliveryError.Terminal())
	assert.True(t, DeliverySent.Valid())
	assert.False(t, DeliveryState("queued").Valid())
}
