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

package query

import "errors"

var (
	// ErrMalformedExpression is returned when an And/Or combinator carries a count that is not a non-negative integer
	ErrMalformedExpression = errors.New("malformed expression")
	// ErrInvalidFoldCount is returned in strict mode when a combinator folds more lines than are available
	ErrInvalidFoldCount = errors.New("combinator folds more lines than are available")
	// ErrInvalidLimit is returned for a negative row limit
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrUnknownOutputFormat is returned by ParseOutputFormat for unsupported formats
	ErrUnknownOutputFormat = errors.New("unknown output format")
)
