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

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/storage"
	badgerstore "github.com/poiesic/tubescribe/storage/badger"
)

// BadgerLimiter enforces limits inside one read-write transaction per call.
// Counters keep the expiry set by the first increment of their window.
type BadgerLimiter struct {
	backend *badgerstore.Backend
	metrics *metrics.Metrics
}

var _ Limiter = (*BadgerLimiter)(nil)

// NewBadgerLimiter creates a limiter on backend. m may be nil.
func NewBadgerLimiter(backend *badgerstore.Backend, m *metrics.Metrics) (*BadgerLimiter, error) {
	if backend == nil {
		return nil, ErrStoreRequired
	}
	return &BadgerLimiter{backend: backend, metrics: m}, nil
}

// Allow implements Limiter.
func (l *BadgerLimiter) Allow(ctx context.Context, callerID, action string, maxCount int, window time.Duration) (bool, error) {
	if err := checkLimit(maxCount, window); err != nil {
		return false, err
	}
	key := storage.RateLimitKey(action, callerID)
	unlock := l.backend.LockKey(key)
	defer unlock()

	var allowed bool
	err := l.backend.Update(ctx, func(tx *badger.Txn) error {
		allowed = false
		used, expiresAt, err := readCounter(tx, key)
		if err != nil {
			return err
		}
		if used >= maxCount {
			return nil
		}
		entry := badger.NewEntry([]byte(key), []byte(strconv.Itoa(used+1)))
		if used == 0 {
			entry = entry.WithTTL(window)
		} else {
			entry.ExpiresAt = expiresAt
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		allowed = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s failed: %w", key, err)
	}
	l.metrics.RecordRateLimit(action, allowed)
	return allowed, nil
}

// Remaining implements Limiter.
func (l *BadgerLimiter) Remaining(ctx context.Context, callerID, action string, maxCount int) (int, error) {
	key := storage.RateLimitKey(action, callerID)
	var used int
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		used, _, err = readCounter(tx, key)
		return err
	}, false)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return remaining(maxCount, used), nil
}

// readCounter returns the counter under key and its expiry. A missing key
// counts as zero.
func readCounter(tx *badger.Txn, key string) (int, uint64, error) {
	item, err := tx.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return 0, 0, err
	}
	used, err := strconv.Atoi(string(val))
	if err != nil {
		return 0, 0, fmt.Errorf("corrupt counter %s: %w", key, err)
	}
	return used, item.ExpiresAt(), nil
}
