package tubescribe

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/tubescribe/ai/mock"
	"github.com/poiesic/tubescribe/config"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSourceID = "dQw4w9WgXcQ"

type staticTitles struct{}

func (staticTitles) FetchTitle(ctx context.Context, sourceID string) string {
	return "A Talk"
}

func testConfig(t *testing.T, topology string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Storage.Topology = topology
	cfg.Storage.BadgerPath = filepath.Join(dir, "badger")
	cfg.Storage.VectorDir = filepath.Join(dir, "vectors")
	cfg.Sources.TranscriptDir = filepath.Join(dir, "transcripts")
	cfg.Records.SQLitePath = filepath.Join(dir, "records.db")
	cfg.Chunking.TargetSize = 40
	cfg.Chunking.Overlap = 5
	cfg.Ingestion.Workers = 2
	cfg.Ingestion.RetryBaseDelay = time.Millisecond
	cfg.Ingestion.WaitTimeout = 10 * time.Second

	require.NoError(t, os.MkdirAll(cfg.Sources.TranscriptDir, 0o755))
	entries := make([]core.TranscriptEntry, 8)
	for i := range entries {
		entries[i] = core.TranscriptEntry{Text: "The speaker explains how write-ahead logs make storage engines durable.", Start: float64(i * 10), Duration: 10}
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Sources.TranscriptDir, testSourceID+".json"), data, 0o644))
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) (*Service, *mock.MockProvider) {
	t.Helper()
	provider := mock.NewMockProvider().(*mock.MockProvider)
	svc, err := NewService(context.Background(), cfg,
		WithProvider(provider),
		WithTitleSource(staticTitles{}),
		WithMetrics(metrics.New(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc, provider
}

func exerciseService(t *testing.T, svc *Service, provider *mock.MockProvider) {
	t.Helper()
	ctx := context.Background()

	outcome, err := svc.IngestAndWait(ctx, testSourceID)
	require.NoError(t, err)
	require.True(t, outcome.OK(), outcome.Message)
	assert.Equal(t, "A Talk", outcome.Title)
	assert.False(t, outcome.Cached)

	outcome, err = svc.IngestAndWait(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, outcome.Cached)
	assert.Equal(t, 1, provider.GetMockSummarizer().CallCount())

	results, err := svc.Search(ctx, testSourceID, "write-ahead logs", 2)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	outcome, err = svc.IngestAndWait(ctx, "missing0000")
	require.NoError(t, err)
	assert.Equal(t, "transcript is empty or unavailable", outcome.Message)

	for range 5 {
		ok, err := svc.AllowVideo(ctx, "caller")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := svc.AllowVideo(ctx, "caller")
	require.NoError(t, err)
	assert.False(t, ok)

	left, err := svc.RemainingQuestions(ctx, "caller")
	require.NoError(t, err)
	assert.Equal(t, 30, left)
	ok, err = svc.AllowQuestion(ctx, "caller")
	require.NoError(t, err)
	assert.True(t, ok)
	left, err = svc.RemainingVideos(ctx, "caller")
	require.NoError(t, err)
	assert.Equal(t, 0, left)

	svc.RecordInteraction(ctx, "caller", testSourceID, "what is a WAL?", "a log", "")
	got, err := svc.Records().Interactions(ctx, testSourceID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	record, err := svc.Records().GetRecord(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, "A Talk", record.Title)
}

func TestService_BadgerTopology(t *testing.T) {
	svc, provider := newTestService(t, testConfig(t, config.TopologyBadger))
	exerciseService(t, svc, provider)
}

func TestService_FileTopology(t *testing.T) {
	cfg := testConfig(t, config.TopologyFile)
	svc, provider := newTestService(t, cfg)
	exerciseService(t, svc, provider)

	matches, err := filepath.Glob(filepath.Join(cfg.Storage.VectorDir, "*.vec"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestService_RedisTopology(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, config.TopologyRedis)
	cfg.Storage.RedisURL = "redis://" + mr.Addr() + "/0"

	svc, provider := newTestService(t, cfg)
	exerciseService(t, svc, provider)
	assert.True(t, mr.Exists("summary:"+testSourceID))
	assert.True(t, mr.Exists("vecidx:"+testSourceID))
}

func TestNewService_Errors(t *testing.T) {
	ctx := context.Background()

	cfg := testConfig(t, config.TopologyBadger)
	cfg.Storage.Topology = "tape"
	_, err := NewService(ctx, cfg, WithProvider(mock.NewMockProvider()))
	assert.Error(t, err)

	cfg = testConfig(t, config.TopologyBadger)
	cfg.Sources.TranscriptDir = filepath.Join(t.TempDir(), "absent")
	_, err = NewService(ctx, cfg, WithProvider(mock.NewMockProvider()))
	assert.Error(t, err)

	cfg = testConfig(t, config.TopologyRedis)
	mr := miniredis.RunT(t)
	cfg.Storage.RedisURL = mr.Addr()
	mr.Close()
	_, err = NewService(ctx, cfg, WithProvider(mock.NewMockProvider()))
	assert.Error(t, err)
}

func TestService_CloseWithoutRecords(t *testing.T) {
	cfg := testConfig(t, config.TopologyBadger)
	cfg.Records.SQLitePath = ""
	svc, err := NewService(context.Background(), cfg, WithProvider(mock.NewMockProvider()), WithTitleSource(staticTitles{}))
	require.NoError(t, err)
	assert.Nil(t, svc.Records())
	svc.RecordInteraction(context.Background(), "c", testSourceID, "q", "a", "")
	assert.NoError(t, svc.Close())
}
