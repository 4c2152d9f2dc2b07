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

// Package response interprets raw Livestatus responses.
package response

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blinklabs-io/golivestatus/query"
)

// FailureMessage is the payload Unpack returns for an unsuccessful Result
const FailureMessage = "An error occurred fetching data from Livestatus."

var (
	// ErrNoResult is returned when the transport produced no response
	ErrNoResult = errors.New("no or invalid data received from livestatus")
	// ErrDecode is returned when a JSON response cannot be parsed
	ErrDecode = errors.New("error while deserialising JSON from livestatus")
	// ErrEmptyResult is returned for an empty JSON list when empty lists are not allowed
	ErrEmptyResult = errors.New("livestatus returned an empty list")
)

// Result is the outcome of a query. OK distinguishes a valid empty result from no
// result at all, so callers never have to inspect Data to tell them apart
type Result struct {
	OK bool
	// Data is the raw response string for text output, or the decoded JSON value
	Data     any
	Err      error
	Warnings []error
}

// Unpack returns the success flag and payload. On failure the payload is a generic error message
func (r Result) Unpack() (bool, any) {
	if !r.OK {
		return false, FailureMessage
	}
	return true, r.Data
}

// Failure returns an unsuccessful Result wrapping err
func Failure(err error) Result {
	return Result{
		Err: err,
	}
}

// Decode interprets raw according to format. A non-nil transportErr means there
// is no response and yields a failed Result without parsing anything
func Decode(raw string, transportErr error, format query.OutputFormat, allowEmpty bool) Result {
	if transportErr != nil {
		return Failure(fmt.Errorf("%w: %w", ErrNoResult, transportErr))
	}
	if format != query.OutputFormatJSON {
		return Result{
			OK:   true,
			Data: raw,
		}
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Failure(fmt.Errorf("%w: %w", ErrDecode, err))
	}
	if !allowEmpty {
		if list, ok := data.([]any); ok && len(list) == 0 {
			return Failure(ErrEmptyResult)
		}
	}
	return Result{
		OK:   true,
		Data: data,
	}
}

// IsDecodeFailure reports whether err came from interpreting a response rather than from the transport
func IsDecodeFailure(err error) bool {
	return errors.Is(err, ErrDecode) || errors.Is(err, ErrEmptyResult)
}
