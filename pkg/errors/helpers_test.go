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

package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "context"))

	base := New("base failure")
	wrapped := Wrap(base, "applying change")
	assert.Equal(t, "applying change: base failure", wrapped.Error())
	assert.True(t, Is(wrapped, base))
}

func TestWrapf(t *testing.T) {
	assert.Nil(t, Wrapf(nil, "loading %s", "file"))

	base := New("boom")
	wrapped := Wrapf(base, "loading directive %s", "d-1")
	assert.Equal(t, "loading directive d-1: boom", wrapped.Error())
}

func TestAsThroughWrapping(t *testing.T) {
	nf := &NotFoundError{Resource: "probe", ID: "p-9"}
	wrapped := Wrap(nf, "heartbeat")

	var target *NotFoundError
	assert.True(t, As(wrapped, &target))
	assert.Equal(t, "p-9", target.ID)
}

func TestPublic(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found", &NotFoundError{Resource: "trace set", ID: "acme"}, true},
		{"validation", &ValidationError{Message: "empty"}, true},
		{"conflict", &ConflictError{Resource: "delivery record"}, true},
		{"store", &StoreError{Op: "query", Cause: New("x")}, false},
		{"auth", &AuthError{Reason: "bad key"}, false},
		{"plain", New("plain"), false},
		{"wrapped public", Wrap(&NotFoundError{Resource: "directive", ID: "d"}, "update"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Public(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "directive not found: d-1",
		Message(&NotFoundError{Resource: "directive", ID: "d-1"}))
	assert.Equal(t, "an internal error occurred",
		Message(&StoreError{Op: "insert", Cause: New("disk full")}))
	assert.Equal(t, "an internal error occurred", Message(New("raw")))
}
