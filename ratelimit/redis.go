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

	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/storage"
	"github.com/redis/go-redis/v9"
)

// allowScript returns 1 when the call is allowed and 0 when denied.
var allowScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return 0
end
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisLimiter enforces limits with a Lua script so the read, compare and
// increment run as one server-side operation.
type RedisLimiter struct {
	client  redis.UniversalClient
	metrics *metrics.Metrics
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a limiter on client. m may be nil.
func NewRedisLimiter(client redis.UniversalClient, m *metrics.Metrics) (*RedisLimiter, error) {
	if client == nil {
		return nil, ErrStoreRequired
	}
	return &RedisLimiter{client: client, metrics: m}, nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, callerID, action string, maxCount int, window time.Duration) (bool, error) {
	if err := checkLimit(maxCount, window); err != nil {
		return false, err
	}
	key := storage.RateLimitKey(action, callerID)
	seconds := int64(window / time.Second)
	res, err := allowScript.Run(ctx, l.client, []string{key}, maxCount, seconds).Int()
	if err != nil {
		return false, fmt.Errorf("rate limit check for %s failed: %w", key, err)
	}
	allowed := res == 1
	l.metrics.RecordRateLimit(action, allowed)
	return allowed, nil
}

// Remaining implements Limiter.
func (l *RedisLimiter) Remaining(ctx context.Context, callerID, action string, maxCount int) (int, error) {
	key := storage.RateLimitKey(action, callerID)
	val, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return max(0, maxCount), nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", key, err)
	}
	used, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("corrupt counter %s: %w", key, err)
	}
	return remaining(maxCount, used), nil
}
