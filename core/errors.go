// Copyright 2025 Poiesic Systems
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

package core

import "errors"

// ValidationError marks a terminal, caller-facing failure. Validation errors are
// never retried and their Reason is safe to show to end users verbatim.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Domain validation errors
var (
	// ErrInvalidSourceID indicates a malformed source identifier.
	ErrInvalidSourceID = &ValidationError{Reason: "invalid source identifier"}

	// ErrTranscriptUnavailable indicates the transcript is empty or could not be obtained.
	ErrTranscriptUnavailable = &ValidationError{Reason: "transcript is empty or unavailable"}

	// ErrInvalidTranscriptEntry indicates a TranscriptEntry failed validation.
	ErrInvalidTranscriptEntry = &ValidationError{Reason: "invalid transcript entry"}

	// ErrEmptyQuery indicates a search query with no content.
	ErrEmptyQuery = &ValidationError{Reason: "query cannot be empty"}
)

// IsValidation reports whether err (or anything it wraps) is a validation error.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// ValidationMessage returns the reason of the first validation error in err's chain,
// or the empty string if there is none. Wrapped causes are not included.
func ValidationMessage(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Reason
	}
	return ""
}
