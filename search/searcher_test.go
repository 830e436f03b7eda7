package search

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/poiesic/tubescribe/ai/mock"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/storage/badger"
	"github.com/poiesic/tubescribe/vectorindex"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSourceID = "dQw4w9WgXcQ"

type recordingMonitor struct {
	started string
	chunks  int
	results []core.SearchResult
}

func (m *recordingMonitor) Start(sourceID, query string) { m.started = sourceID + ":" + query }
func (m *recordingMonitor) AfterIndexOpen(chunks int)     { m.chunks = chunks }
func (m *recordingMonitor) Finish(results []core.SearchResult) {
	m.results = results
}

func setup(t *testing.T, chunks []core.Chunk, opts ...Option) (*Searcher, *mock.MockEmbedder) {
	t.Helper()
	_, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	embedder := mock.NewMockEmbedder()
	opener, err := vectorindex.NewOpener(vectors, embedder)
	require.NoError(t, err)

	if len(chunks) > 0 {
		idx, err := opener.Open(context.Background(), testSourceID)
		require.NoError(t, err)
		require.NoError(t, idx.AddChunks(context.Background(), chunks))
	}
	embedder.Reset()

	s, err := NewSearcher(opener, opts...)
	require.NoError(t, err)
	return s, embedder
}

func lectureChunks(n int) []core.Chunk {
	chunks := make([]core.Chunk, n)
	for i := range chunks {
		chunks[i] = core.Chunk{Text: fmt.Sprintf("segment %d of the talk", i), Start: float64(i * 30)}
	}
	return chunks
}

func TestNewSearcher(t *testing.T) {
	_, err := NewSearcher(nil)
	assert.Equal(t, ErrIndexOpenerRequired, err)

	s, _ := setup(t, nil, WithLogger(nil))
	assert.NotNil(t, s)

	s, _ = setup(t, nil, WithLogger(slog.Default()), WithMetrics(nil))
	assert.NotNil(t, s)
}

func TestFindRelevant_Validation(t *testing.T) {
	s, embedder := setup(t, lectureChunks(3))
	ctx := context.Background()

	_, err := s.FindRelevant(ctx, "short", "question", QuestionTopK)
	assert.ErrorIs(t, err, core.ErrInvalidSourceID)

	_, err = s.FindRelevant(ctx, testSourceID, "  \n", QuestionTopK)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
	assert.True(t, core.IsValidation(err))

	assert.Equal(t, 0, embedder.CallCount())
}

func TestFindRelevant_UnindexedSource(t *testing.T) {
	s, embedder := setup(t, nil)

	results, err := s.FindRelevant(context.Background(), testSourceID, "anything", QuestionTopK)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestFindRelevant_RanksExactMatchFirst(t *testing.T) {
	chunks := lectureChunks(12)
	s, _ := setup(t, chunks)

	results, err := s.FindRelevant(context.Background(), testSourceID, chunks[7].Text, DeepDiveTopK)
	require.NoError(t, err)
	require.Len(t, results, DeepDiveTopK)
	assert.Equal(t, chunks[7], results[0].Chunk)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestFindRelevant_TopKBounds(t *testing.T) {
	s, _ := setup(t, lectureChunks(4))
	ctx := context.Background()

	results, err := s.FindRelevant(ctx, testSourceID, "talk", ActionPointsTopK)
	require.NoError(t, err)
	assert.Len(t, results, 4)

	results, err = s.FindRelevant(ctx, testSourceID, "talk", 0)
	require.NoError(t, err)
	assert.Len(t, results, vectorindex.DefaultTopK)
}

func TestFindRelevantWithMonitor(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, _ := setup(t, lectureChunks(5), WithMetrics(m))
	mon := &recordingMonitor{}

	results, err := s.FindRelevantWithMonitor(context.Background(), testSourceID, "segment", QuestionTopK, mon)
	require.NoError(t, err)
	assert.Equal(t, testSourceID+":segment", mon.started)
	assert.Equal(t, 5, mon.chunks)
	assert.Equal(t, results, mon.results)
	assert.Equal(t, 1, testutil.CollectAndCount(m.SearchDuration))
}
