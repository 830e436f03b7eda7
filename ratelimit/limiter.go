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

// Package ratelimit implements an atomic fixed-window counter per caller and
// action. The check and the increment happen in one atomic step on the shared
// store, so concurrent callers cannot overrun the limit.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidLimit is returned when maxCount is not positive.
	ErrInvalidLimit = errors.New("rate limit must be positive")

	// ErrInvalidWindow is returned when the window is shorter than one second.
	ErrInvalidWindow = errors.New("rate limit window must be at least one second")

	// ErrStoreRequired is returned when a limiter is built without a store.
	ErrStoreRequired = errors.New("rate limit store is required")
)

// Limiter decides whether a caller may perform an action.
type Limiter interface {
	// Allow atomically checks the caller's counter for action and, when it
	// is below maxCount, increments it. The first increment in a window
	// starts the window.
	Allow(ctx context.Context, callerID, action string, maxCount int, window time.Duration) (bool, error)

	// Remaining reports how many calls are left in the current window
	// without touching the counter.
	Remaining(ctx context.Context, callerID, action string, maxCount int) (int, error)
}

// Policy is a named limit applied to one action.
type Policy struct {
	Action   string
	MaxCount int
	Window   time.Duration
}

// Default policies.
var (
	VideoPolicy    = Policy{Action: "video", MaxCount: 5, Window: time.Hour}
	QuestionPolicy = Policy{Action: "question", MaxCount: 30, Window: time.Hour}
)

// Validate checks that the policy can be enforced.
func (p Policy) Validate() error {
	if p.Action == "" {
		return errors.New("rate limit action is required")
	}
	return checkLimit(p.MaxCount, p.Window)
}

// Allow applies the policy through l.
func (p Policy) Allow(ctx context.Context, l Limiter, callerID string) (bool, error) {
	return l.Allow(ctx, callerID, p.Action, p.MaxCount, p.Window)
}

// Remaining reports the calls left under the policy.
func (p Policy) Remaining(ctx context.Context, l Limiter, callerID string) (int, error) {
	return l.Remaining(ctx, callerID, p.Action, p.MaxCount)
}

func checkLimit(maxCount int, window time.Duration) error {
	if maxCount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, maxCount)
	}
	if window < time.Second {
		return fmt.Errorf("%w: %s", ErrInvalidWindow, window)
	}
	return nil
}

func remaining(maxCount, used int) int {
	return max(0, maxCount-used)
}
