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

// UserVisibleError defines errors whose messages are safe to return to
// end users as-is. Errors that do not implement this interface, or
// whose IsUserVisible returns false, must be replaced with a generic
// message at the API boundary while the original is logged.
type UserVisibleError interface {
	error

	// IsUserVisible returns true if this error's message should be shown to users.
	IsUserVisible() bool

	// UserMessage returns the message to present to the user. For
	// internal errors this is a generic message that leaks no detail.
	UserMessage() string
}
