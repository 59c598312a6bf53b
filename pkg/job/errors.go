// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package job

import (
	"errors"
)

var (
	// ErrInvalidDescriptor indicates a descriptor failed local validation.
	ErrInvalidDescriptor = errors.New("invalid job descriptor")

	// ErrSubmission indicates a transient submission failure (network, auth).
	ErrSubmission = errors.New("job submission failed")

	// ErrQuotaExceeded indicates the scheduler rejected the job due to
	// resource limits.
	ErrQuotaExceeded = errors.New("scheduler quota exceeded")

	// ErrMalformedConfig indicates the backend rejected the submission
	// payload as invalid.
	ErrMalformedConfig = errors.New("malformed submission config")
)

// Retryable reports whether a submission error may succeed on a later
// attempt. MalformedConfig and descriptor validation errors require the
// caller to fix the input first.
func Retryable(err error) bool {
	return errors.Is(err, ErrSubmission) || errors.Is(err, ErrQuotaExceeded)
}
