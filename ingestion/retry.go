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

package ingestion

import (
	"context"
	"time"
)

// RetryPolicy bounds how often a failing ingestion is run again and how long
// to wait in between. The wait before retry n is BaseDelay * 2^(n-1).
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy retries three times after 1s, 2s and 4s.
var DefaultRetryPolicy = RetryPolicy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultRetryBaseDelay}

// Validate rejects a negative retry count.
func (p RetryPolicy) Validate() error {
	if p.MaxRetries < 0 {
		return ErrInvalidMaxAttempts
	}
	return nil
}

// Attempts is the total number of runs the policy allows.
func (p RetryPolicy) Attempts() int {
	return p.MaxRetries + 1
}

// Delay returns the wait before the given retry, counting from 1.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	return p.BaseDelay << (retry - 1)
}

// Do calls op with the 1-based attempt number until it succeeds, the
// retries are spent or ctx ends. It returns the number of attempts made and
// the last error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}

	var err error
	for attempt := 1; attempt <= p.Attempts(); attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt - 1, ctxErr
		}
		if err = op(ctx, attempt); err == nil {
			return attempt, nil
		}
		if attempt == p.Attempts() {
			return attempt, err
		}

		timer := time.NewTimer(p.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
	return p.Attempts(), err
}

// RetryWithBackoff runs operation up to maxAttempts times, doubling baseDelay
// between attempts, and returns the last error.
func RetryWithBackoff(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	policy := RetryPolicy{MaxRetries: maxAttempts - 1, BaseDelay: baseDelay}
	_, err := policy.Do(ctx, func(context.Context, int) error { return operation() })
	return err
}
