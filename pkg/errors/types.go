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
	"fmt"
)

// ValidationError represents user input validation failures.
// Use this for invalid user input, malformed data, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// IsUserVisible implements UserVisibleError.
func (e *ValidationError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ValidationError) UserMessage() string { return e.Error() }

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist, or has been
// soft-deleted for the purposes of the requested operation.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "trace set", "directive", "probe")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// IsUserVisible implements UserVisibleError.
func (e *NotFoundError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *NotFoundError) UserMessage() string { return e.Error() }

// ConflictError represents a state transition that would violate an
// invariant, such as overwriting a terminal delivery outcome with a
// different outcome.
type ConflictError struct {
	// Resource is the type of resource the transition was attempted on
	Resource string

	// ID is the identifier of the resource
	ID string

	// Reason explains which invariant the transition would violate
	Reason string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Resource, e.ID, e.Reason)
}

// IsUserVisible implements UserVisibleError.
func (e *ConflictError) IsUserVisible() bool { return true }

// UserMessage implements UserVisibleError.
func (e *ConflictError) UserMessage() string { return e.Error() }

// StoreError represents an underlying record store failure: a failed
// query, an aborted transaction, or a connection problem. Store errors
// are internal; callers log them with full context and replace them
// with a generic message before they cross the API boundary.
type StoreError struct {
	// Op describes the operation that failed (e.g., "insert directive")
	Op string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// IsUserVisible implements UserVisibleError.
func (e *StoreError) IsUserVisible() bool { return false }

// UserMessage implements UserVisibleError.
func (e *StoreError) UserMessage() string { return "an internal error occurred" }

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "auth.operator_secret")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// AuthError represents a failed authentication attempt. The user-facing
// message is deliberately generic so that it never reveals whether a
// given key exists.
type AuthError struct {
	// Reason is logged but never returned to the caller verbatim
	Reason string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

// IsUserVisible implements UserVisibleError.
func (e *AuthError) IsUserVisible() bool { return false }

// UserMessage implements UserVisibleError.
func (e *AuthError) UserMessage() string { return "authentication failed" }
