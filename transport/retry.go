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
	"context"
	"fmt"
	"time"
)

const (
	DefaultMaxRetries     = 5
	DefaultAttemptTimeout = 5 * time.Second
	DefaultRetryDelay     = 60 * time.Second
)

// RetryPolicy bounds how often and how long a query is attempted
type RetryPolicy struct {
	// MaxRetries is the total number of attempts, not the number of retries after the first
	MaxRetries     int
	AttemptTimeout time.Duration
	RetryDelay     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:     DefaultMaxRetries,
		AttemptTimeout: DefaultAttemptTimeout,
		RetryDelay:     DefaultRetryDelay,
	}
}

func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be non-negative: %d", ErrInvalidRetryPolicy, p.MaxRetries)
	}
	if p.AttemptTimeout <= 0 {
		return fmt.Errorf("%w: attempt timeout must be positive: %s", ErrInvalidRetryPolicy, p.AttemptTimeout)
	}
	if p.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must be non-negative: %s", ErrInvalidRetryPolicy, p.RetryDelay)
	}
	return nil
}

// Budget is the attempt counter for a single call. A new Budget must be created
// for every call, so one exhausted call never leaks into the next
type Budget struct {
	policy   RetryPolicy
	attempts int
}

func NewBudget(policy RetryPolicy) *Budget {
	return &Budget{
		policy: policy,
	}
}

func (b *Budget) Policy() RetryPolicy {
	return b.policy
}

// Attempts returns the number of attempts consumed so far
func (b *Budget) Attempts() int {
	return b.attempts
}

func (b *Budget) Exhausted() bool {
	return b.attempts >= b.policy.MaxRetries
}

func (b *Budget) consume() int {
	b.attempts++
	return b.attempts
}

// Wait sleeps for the retry delay, returning early with the context error if ctx is done
func (b *Budget) Wait(ctx context.Context) error {
	if b.policy.RetryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.policy.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
