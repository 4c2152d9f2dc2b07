// Copyright 2025 Blink Labs Software
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

package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when an attempt runs past its deadline while the server is still sending
	ErrTimeout = errors.New("livestatus did not respond within the time allocated")
	// ErrRetriesExhausted is returned once every attempt allowed by the retry policy has failed
	ErrRetriesExhausted = errors.New("livestatus retries exhausted")
	// ErrHalfCloseUnsupported is returned when the dialed connection cannot close only its write side
	ErrHalfCloseUnsupported = errors.New("connection does not support half-close")
	// ErrInvalidRetryPolicy is returned by RetryPolicy.Validate
	ErrInvalidRetryPolicy = errors.New("invalid retry policy")
)

// AttemptError describes a retryable failure of a single attempt
type AttemptError struct {
	Attempt int
	Timeout bool
	Err     error
}

func (e *AttemptError) Error() string {
	kind := "socket error"
	if e.Timeout {
		kind = "timeout"
	}
	return fmt.Sprintf("attempt %d: %s: %s", e.Attempt, kind, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// UnclassifiedError wraps a failure that is neither a timeout nor a connection
// error. It stops the retry loop immediately
type UnclassifiedError struct {
	Attempt int
	Err     error
}

func (e *UnclassifiedError) Error() string {
	return fmt.Sprintf("attempt %d: unhandled error: %s", e.Attempt, e.Err)
}

func (e *UnclassifiedError) Unwrap() error {
	return e.Err
}
