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

// Package metrics provides Prometheus metrics for ingestion, retrieval,
// caching and rate limiting.
//
// Every Record method is safe to call on a nil *Metrics, so components take
// metrics as an optional dependency.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tubescribe"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Job metrics
	JobsSubmitted prometheus.Counter
	JobsActive    prometheus.Gauge
	JobOutcomes   *prometheus.CounterVec
	JobAttempts   prometheus.Counter
	JobDuration   prometheus.Histogram

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Index metrics
	ChunksIndexed   prometheus.Counter
	IndexPersistErr prometheus.Counter
	SearchDuration  prometheus.Histogram

	// Rate limit metrics
	RateLimitDecisions *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		JobsSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Total number of ingestion jobs submitted",
		}),
		JobsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_active",
			Help:      "Number of ingestion jobs currently running",
		}),
		JobOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_outcomes_total",
			Help:      "Finished ingestion jobs by outcome",
		}, []string{"status", "cached"}),
		JobAttempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_attempts_total",
			Help:      "Total number of orchestrator runs, retries included",
		}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Duration of ingestion jobs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by cache and result",
		}, []string{"cache", "result"}),

		ChunksIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks added to vector indexes",
		}),
		IndexPersistErr: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_persist_errors_total",
			Help:      "Total number of failed vector index writes",
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of top-k searches in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		}),

		RateLimitDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions by action",
		}, []string{"action", "decision"}),
	}
}

// RecordJobStart records a job being submitted and starting.
func (m *Metrics) RecordJobStart() {
	if m == nil {
		return
	}
	m.JobsSubmitted.Inc()
	m.JobsActive.Inc()
}

// RecordJobEnd records a finished job.
func (m *Metrics) RecordJobEnd(status string, cached bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.JobsActive.Dec()
	m.JobDuration.Observe(elapsed.Seconds())
	m.JobOutcomes.WithLabelValues(status, boolLabel(cached)).Inc()
}

// RecordAttempt records one orchestrator run.
func (m *Metrics) RecordAttempt() {
	if m == nil {
		return
	}
	m.JobAttempts.Inc()
}

// RecordCacheLookup records a hit or miss for the named cache.
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordChunksIndexed records chunks appended to an index.
func (m *Metrics) RecordChunksIndexed(n int) {
	if m == nil {
		return
	}
	m.ChunksIndexed.Add(float64(n))
}

// RecordPersistError records a failed index write.
func (m *Metrics) RecordPersistError() {
	if m == nil {
		return
	}
	m.IndexPersistErr.Inc()
}

// RecordSearch records the duration of one search.
func (m *Metrics) RecordSearch(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(elapsed.Seconds())
}

// RecordRateLimit records an allow or deny decision.
func (m *Metrics) RecordRateLimit(action string, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.RateLimitDecisions.WithLabelValues(action, decision).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
