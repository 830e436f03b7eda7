package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/poiesic/tubescribe/ai/mock"
	"github.com/poiesic/tubescribe/cache"
	"github.com/poiesic/tubescribe/chunking"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/storage/badger"
	"github.com/poiesic/tubescribe/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSourceID = "dQw4w9WgXcQ"

type fakeTranscripts struct {
	entries []core.TranscriptEntry
	err     error
	calls   atomic.Int32
}

func (f *fakeTranscripts) Fetch(ctx context.Context, sourceID string) ([]core.TranscriptEntry, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

type fakeTitles struct{}

func (fakeTitles) FetchTitle(ctx context.Context, sourceID string) string {
	return "Title " + sourceID
}

type fakeRecords struct {
	mu      sync.Mutex
	saved   map[string]string
	failErr error
}

func (f *fakeRecords) SaveRecord(ctx context.Context, sourceID, title, summary string) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saved == nil {
		f.saved = map[string]string{}
	}
	f.saved[sourceID] = summary
	return nil
}

func (f *fakeRecords) SaveInteraction(ctx context.Context, callerID, sourceID, question, answer, language string) error {
	return nil
}

func (f *fakeRecords) Close() error { return nil }

func tenEntries() []core.TranscriptEntry {
	entries := make([]core.TranscriptEntry, 10)
	for i := range entries {
		entries[i] = core.TranscriptEntry{
			Text:     fmt.Sprintf("This is sentence number %d of the lecture about distributed consensus and replicated logs.", i),
			Start:    float64(i) * 5,
			Duration: 5,
		}
	}
	return entries
}

type harness struct {
	orch        *Orchestrator
	cache       *cache.Cache
	opener      *vectorindex.Opener
	transcripts *fakeTranscripts
	summarizer  *mock.MockSummarizer
	embedder    *mock.MockEmbedder
	records     *fakeRecords
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	kv, vectors, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	c, err := cache.New(kv)
	require.NoError(t, err)
	embedder := mock.NewMockEmbedder()
	opener, err := vectorindex.NewOpener(vectors, embedder)
	require.NoError(t, err)
	chunker, err := chunking.New(chunking.WithTargetSize(40), chunking.WithOverlap(5))
	require.NoError(t, err)

	h := &harness{
		cache:       c,
		opener:      opener,
		transcripts: &fakeTranscripts{entries: tenEntries()},
		summarizer:  mock.NewMockSummarizer(),
		embedder:    embedder,
		records:     &fakeRecords{},
	}
	h.orch, err = NewOrchestrator(Dependencies{
		Cache:       c,
		Indexes:     opener,
		Chunker:     chunker,
		Transcripts: h.transcripts,
		Titles:      fakeTitles{},
		Summarizer:  h.summarizer,
		Records:     h.records,
	})
	require.NoError(t, err)
	return h
}

func (h *harness) indexLen(t *testing.T) int {
	t.Helper()
	idx, err := h.opener.Open(context.Background(), testSourceID)
	require.NoError(t, err)
	return idx.Len()
}

func TestNewOrchestrator_RequiresDependencies(t *testing.T) {
	_, err := NewOrchestrator(Dependencies{})
	assert.ErrorIs(t, err, ErrCacheRequired)
}

func TestProcess_FirstRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	outcome, err := h.orch.Process(ctx, testSourceID)
	require.NoError(t, err)
	require.True(t, outcome.OK())
	assert.False(t, outcome.Cached)
	assert.Equal(t, "Title "+testSourceID, outcome.Title)
	assert.Contains(t, outcome.Summary, "Summary of Title "+testSourceID)
	assert.Equal(t, 1, h.summarizer.CallCount())

	assert.Greater(t, h.indexLen(t), 1)

	summary, ok, err := h.cache.GetSummary(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, outcome.Summary, summary)

	transcript, ok, err := h.cache.GetTranscript(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, transcript, 10)

	assert.Equal(t, outcome.Summary, h.records.saved[testSourceID])
}

func TestProcess_CacheShortCircuit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.orch.Process(ctx, testSourceID)
	require.NoError(t, err)
	indexed := h.indexLen(t)
	embedCalls := h.embedder.CallCount()

	second, err := h.orch.Process(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, second.OK())
	assert.True(t, second.Cached)
	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.Title, second.Title)

	assert.Equal(t, 1, h.summarizer.CallCount())
	assert.Equal(t, int32(1), h.transcripts.calls.Load())
	assert.Equal(t, embedCalls, h.embedder.CallCount())
	assert.Equal(t, indexed, h.indexLen(t))
}

func TestProcess_InvalidSourceID(t *testing.T) {
	h := newHarness(t)

	outcome, err := h.orch.Process(context.Background(), "not-an-id")
	require.NoError(t, err)
	assert.False(t, outcome.OK())
	assert.Equal(t, core.ErrInvalidSourceID.Reason, outcome.Message)
	assert.Equal(t, int32(0), h.transcripts.calls.Load())
}

func TestProcess_EmptyTranscript(t *testing.T) {
	tests := []struct {
		name    string
		entries []core.TranscriptEntry
		err     error
	}{
		{"no entries", nil, nil},
		{"blank entries", []core.TranscriptEntry{{Text: "  "}, {Text: ""}}, nil},
		{"source says unavailable", nil, fmt.Errorf("%w: no captions", core.ErrTranscriptUnavailable)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.transcripts.entries = tt.entries
			h.transcripts.err = tt.err

			outcome, err := h.orch.Process(context.Background(), testSourceID)
			require.NoError(t, err)
			assert.False(t, outcome.OK())
			assert.Equal(t, "transcript is empty or unavailable", outcome.Message)
			assert.Equal(t, 0, h.summarizer.CallCount())

			_, cached, err := h.cache.GetTranscript(context.Background(), testSourceID)
			require.NoError(t, err)
			assert.False(t, cached)
		})
	}
}

func TestProcess_TransientErrorsAreReturned(t *testing.T) {
	h := newHarness(t)
	h.transcripts.err = errors.New("upstream timeout")

	outcome, err := h.orch.Process(context.Background(), testSourceID)
	assert.Error(t, err)
	assert.Nil(t, outcome)
}

func TestProcess_RetryAfterSummarizerFailure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.summarizer.SummarizeFunc = func(ctx context.Context, fullText, title, sections string) (string, error) {
		return "", errors.New("model overloaded")
	}

	_, err := h.orch.Process(ctx, testSourceID)
	require.Error(t, err)
	indexed := h.indexLen(t)
	require.Greater(t, indexed, 0)

	h.summarizer.SummarizeFunc = nil
	outcome, err := h.orch.Process(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, outcome.OK())
	assert.False(t, outcome.Cached)
	assert.Equal(t, indexed, h.indexLen(t))
	assert.Equal(t, int32(1), h.transcripts.calls.Load())
}

func TestProcess_CachedSummaryWithoutIndex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.cache.SetSummary(ctx, testSourceID, "earlier summary"))

	outcome, err := h.orch.Process(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, outcome.OK())
	assert.False(t, outcome.Cached)
	assert.Equal(t, "earlier summary", outcome.Summary)
	assert.Equal(t, 0, h.summarizer.CallCount())
	assert.Greater(t, h.indexLen(t), 0)
}

func TestProcess_SummarizerInputs(t *testing.T) {
	h := newHarness(t)
	var gotText, gotSections string
	h.summarizer.SummarizeFunc = func(ctx context.Context, fullText, title, sections string) (string, error) {
		gotText, gotSections = fullText, sections
		return "ok", nil
	}

	_, err := h.orch.Process(context.Background(), testSourceID)
	require.NoError(t, err)
	assert.Equal(t, core.FullText(tenEntries()), gotText)
	assert.Equal(t, core.TimestampSections(tenEntries(), 6), gotSections)
	assert.Contains(t, gotSections, "[0:00] This is sentence number 0")
}

func TestProcess_RecordFailureIsIgnored(t *testing.T) {
	h := newHarness(t)
	h.records.failErr = errors.New("disk full")

	outcome, err := h.orch.Process(context.Background(), testSourceID)
	require.NoError(t, err)
	assert.True(t, outcome.OK())
}

func TestProcess_ConcurrentRunsIndexOnce(t *testing.T) {
	single := newHarness(t)
	_, err := single.orch.Process(context.Background(), testSourceID)
	require.NoError(t, err)
	want := single.indexLen(t)

	h := newHarness(t)
	var wg sync.WaitGroup
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := h.orch.Process(context.Background(), testSourceID)
			assert.NoError(t, err)
			assert.True(t, outcome.OK())
		}()
	}
	wg.Wait()
	assert.Equal(t, want, h.indexLen(t))
}
