package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordJobStart()
	m.RecordAttempt()
	m.RecordAttempt()
	m.RecordJobEnd("success", true, 2*time.Second)
	m.RecordCacheLookup("summary", true)
	m.RecordCacheLookup("summary", false)
	m.RecordChunksIndexed(7)
	m.RecordPersistError()
	m.RecordSearch(10 * time.Millisecond)
	m.RecordRateLimit("video", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsSubmitted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.JobsActive))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobOutcomes.WithLabelValues("success", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("summary", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("summary", "miss")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.ChunksIndexed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IndexPersistErr))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitDecisions.WithLabelValues("video", "denied")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordJobStart()
		m.RecordJobEnd("error", false, time.Second)
		m.RecordAttempt()
		m.RecordCacheLookup("transcript", false)
		m.RecordChunksIndexed(1)
		m.RecordPersistError()
		m.RecordSearch(time.Millisecond)
		m.RecordRateLimit("question", true)
	})
}

func TestServerHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.RecordChunksIndexed(3)

	srv := NewServer(":0", reg)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tubescribe_chunks_indexed_total 3")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
