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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "with field",
			err:  &ValidationError{Field: "statement", Message: "must not be empty"},
			want: "validation failed on statement: must not be empty",
		},
		{
			name: "without field",
			err:  &ValidationError{Message: "bad input"},
			want: "validation failed: bad input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, tt.err.IsUserVisible())
			assert.Equal(t, tt.want, tt.err.UserMessage())
		})
	}
}

func TestNotFoundError(t *testing.T) {
	err := &NotFoundError{Resource: "directive", ID: "d-123"}
	assert.Equal(t, "directive not found: d-123", err.Error())
	assert.True(t, err.IsUserVisible())
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{
		Resource: "delivery record",
		ID:       "dr-1",
		Reason:   "already resolved as success",
	}
	assert.Equal(t, "conflict on delivery record dr-1: already resolved as success", err.Error())
	assert.True(t, err.IsUserVisible())
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := &StoreError{Op: "insert directive", Cause: cause}

	assert.Equal(t, "store error during insert directive: disk I/O error", err.Error())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.False(t, err.IsUserVisible())
	assert.Equal(t, "an internal error occurred", err.UserMessage())
}

func TestAuthError(t *testing.T) {
	err := &AuthError{Reason: "unknown probe key pk_abc"}
	assert.False(t, err.IsUserVisible())
	assert.Equal(t, "authentication failed", err.UserMessage())
	assert.Contains(t, err.Error(), "pk_abc")
}

func TestConfigError(t *testing.T) {
	err := &ConfigError{Key: "auth.operator_secret", Reason: "must be set"}
	assert.Equal(t, "config error at auth.operator_secret: must be set", err.Error())
}
