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

// Package cache stores transcripts and summaries per source with expiry,
// on top of any storage.KV.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/storage"
)

// DefaultTTL is the lifetime of cached transcripts and summaries.
const DefaultTTL = 24 * time.Hour

// ErrKVRequired is returned when no KV store is supplied.
var ErrKVRequired = errors.New("kv store is required")

// Cache is the transcript and summary cache layer.
type Cache struct {
	kv            storage.KV
	transcriptTTL time.Duration
	summaryTTL    time.Duration
	metrics       *metrics.Metrics
}

// Option configures a Cache.
type Option func(*Cache) error

// WithTranscriptTTL sets the lifetime of cached transcripts.
func WithTranscriptTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl <= 0 {
			return fmt.Errorf("transcript ttl must be positive, got %s", ttl)
		}
		c.transcriptTTL = ttl
		return nil
	}
}

// WithSummaryTTL sets the lifetime of cached summaries.
func WithSummaryTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl <= 0 {
			return fmt.Errorf("summary ttl must be positive, got %s", ttl)
		}
		c.summaryTTL = ttl
		return nil
	}
}

// WithMetrics records hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) error {
		c.metrics = m
		return nil
	}
}

// New creates a cache layer over kv.
func New(kv storage.KV, opts ...Option) (*Cache, error) {
	if kv == nil {
		return nil, ErrKVRequired
	}
	c := &Cache{
		kv:            kv,
		transcriptTTL: DefaultTTL,
		summaryTTL:    DefaultTTL,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// GetTranscript returns the cached transcript. A miss is (nil, false, nil).
func (c *Cache) GetTranscript(ctx context.Context, sourceID string) ([]core.TranscriptEntry, bool, error) {
	data, ok, err := c.get(ctx, "transcript", storage.TranscriptKey(sourceID))
	if err != nil || !ok {
		return nil, false, err
	}
	var entries []core.TranscriptEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("%w: transcript %s: %v", storage.ErrSerializationFailed, sourceID, err)
	}
	return entries, true, nil
}

// SetTranscript replaces the cached transcript.
func (c *Cache) SetTranscript(ctx context.Context, sourceID string, entries []core.TranscriptEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrSerializationFailed, err)
	}
	return c.kv.Set(ctx, storage.TranscriptKey(sourceID), data, c.transcriptTTL)
}

// GetSummary returns the cached summary. A miss is ("", false, nil).
func (c *Cache) GetSummary(ctx context.Context, sourceID string) (string, bool, error) {
	data, ok, err := c.get(ctx, "summary", storage.SummaryKey(sourceID))
	if err != nil || !ok {
		return "", false, err
	}
	return string(data), true, nil
}

// SetSummary replaces the cached summary.
func (c *Cache) SetSummary(ctx context.Context, sourceID, summary string) error {
	return c.kv.Set(ctx, storage.SummaryKey(sourceID), []byte(summary), c.summaryTTL)
}

func (c *Cache) get(ctx context.Context, name, key string) ([]byte, bool, error) {
	data, err := c.kv.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		c.metrics.RecordCacheLookup(name, false)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s cache: %w", name, err)
	}
	c.metrics.RecordCacheLookup(name, true)
	return data, true, nil
}
