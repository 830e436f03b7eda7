package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/vectorindex"
)

// Result sizes per use.
const (
	QuestionTopK     = 5
	DeepDiveTopK     = 8
	ActionPointsTopK = 10
)

// Searcher retrieves relevant transcript chunks for a source.
type Searcher struct {
	opener  *vectorindex.Opener
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics records search durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Searcher) error {
		s.metrics = m
		return nil
	}
}

// NewSearcher creates a new searcher over the indexes opened by opener.
func NewSearcher(opener *vectorindex.Opener, opts ...Option) (*Searcher, error) {
	if opener == nil {
		return nil, ErrIndexOpenerRequired
	}

	s := &Searcher{
		opener: opener,
		logger: slog.Default().With("component", "searcher"),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// FindRelevant returns up to topK chunks of sourceID ranked by similarity to
// query. An unindexed source yields an empty slice. topK <= 0 uses the
// index default.
func (s *Searcher) FindRelevant(ctx context.Context, sourceID, query string, topK int) ([]core.SearchResult, error) {
	return s.FindRelevantWithMonitor(ctx, sourceID, query, topK, nil)
}

// FindRelevantWithMonitor is FindRelevant with callbacks at each stage.
func (s *Searcher) FindRelevantWithMonitor(ctx context.Context, sourceID, query string, topK int, monitor SearchMonitor) ([]core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateSourceID(sourceID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, core.ErrEmptyQuery
	}

	start := time.Now()
	monitor.Start(sourceID, query)

	index, err := s.opener.Open(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	monitor.AfterIndexOpen(index.Len())

	results, err := index.Search(ctx, query, topK)
	if err != nil {
		s.logger.Error("search failed", "source_id", sourceID, "err", err)
		return nil, err
	}

	s.metrics.RecordSearch(time.Since(start))
	monitor.Finish(results)
	return results, nil
}
