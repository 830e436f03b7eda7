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

package vectorindex

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/poiesic/tubescribe/ai"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/metrics"
	"github.com/poiesic/tubescribe/storage"
)

// DefaultTopK is the number of results Search returns when topK is not positive.
const DefaultTopK = 3

// Index is the vector index of one source. Vectors are L2-normalised so the
// inner product is the cosine similarity.
type Index struct {
	sourceID string
	backend  storage.VectorBackend
	embedder ai.Embedder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.RWMutex
	snapshot *storage.Snapshot
}

// Option configures an Index.
type Option func(*Index) error

// WithMetrics records indexing and search metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(idx *Index) error {
		idx.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		idx.logger = logger
		return nil
	}
}

// Open loads the persisted index for sourceID. A snapshot that cannot be
// loaded or decoded is logged and the index starts empty.
func Open(ctx context.Context, sourceID string, backend storage.VectorBackend, embedder ai.Embedder, opts ...Option) (*Index, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	idx := &Index{
		sourceID: sourceID,
		backend:  backend,
		embedder: embedder,
		logger:   slog.Default().With("component", "vector-index"),
		snapshot: &storage.Snapshot{},
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}

	snapshot, err := backend.LoadIndex(ctx, sourceID)
	if err != nil {
		idx.logger.Error("failed to load index, starting empty", "source", sourceID, "err", err)
	} else if snapshot != nil {
		idx.snapshot = snapshot
	}
	return idx, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.snapshot.Len()
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (idx *Index) Dimension() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.snapshot.Empty() {
		return 0
	}
	return idx.snapshot.Dimension
}

// AddChunks embeds chunks in one batch and appends them to the index.
// A failed write to the backend is logged; the chunks are still added in memory.
func (idx *Index) AddChunks(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := checkDimension(idx.snapshot, vectors); err != nil {
		return err
	}

	var persisted *storage.Snapshot
	err = idx.backend.UpdateIndex(ctx, idx.sourceID, func(s *storage.Snapshot) error {
		if err := s.Append(vectors, chunks); err != nil {
			return err
		}
		persisted = s.Clone()
		return nil
	})
	idx.adopt(persisted, err, vectors, chunks)
	return nil
}

// Populate adds chunks only if no vectors exist for the source yet, neither
// in memory nor in the freshest persisted state. It reports whether the
// chunks were added. Concurrent callers for one source add them once.
func (idx *Index) Populate(ctx context.Context, chunks []core.Chunk) (bool, error) {
	if len(chunks) == 0 || idx.Len() > 0 {
		return false, nil
	}
	vectors, err := idx.embed(ctx, chunks)
	if err != nil {
		return false, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !idx.snapshot.Empty() {
		return false, nil
	}

	var persisted *storage.Snapshot
	added := false
	err = idx.backend.UpdateIndex(ctx, idx.sourceID, func(s *storage.Snapshot) error {
		added = false
		if s.Empty() {
			if err := s.Append(vectors, chunks); err != nil {
				return err
			}
			added = true
		}
		persisted = s.Clone()
		return nil
	})
	if err == nil && !added {
		idx.logger.Debug("index already populated elsewhere", "source", idx.sourceID, "vectors", persisted.Len())
		idx.snapshot = persisted
		return false, nil
	}
	idx.adopt(persisted, err, vectors, chunks)
	return true, nil
}

// adopt installs the persisted state after a successful write, or appends
// in memory after a failed one.
func (idx *Index) adopt(persisted *storage.Snapshot, persistErr error, vectors [][]float32, chunks []core.Chunk) {
	if persistErr == nil {
		idx.snapshot = persisted
	} else {
		idx.logger.Error("failed to persist index", "source", idx.sourceID, "err", persistErr)
		idx.metrics.RecordPersistError()
		if err := idx.snapshot.Append(vectors, chunks); err != nil {
			idx.logger.Error("failed to append in memory", "source", idx.sourceID, "err", err)
			return
		}
	}
	idx.metrics.RecordChunksIndexed(len(chunks))
	idx.logger.Debug("indexed chunks", "source", idx.sourceID, "added", len(chunks), "total", idx.snapshot.Len())
}

func (idx *Index) embed(ctx context.Context, chunks []core.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := idx.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: %d texts, %d vectors", ErrEmbeddingCountMismatch, len(chunks), len(vectors))
	}
	for i, v := range vectors {
		vectors[i] = NormalizeVector(v)
	}
	return vectors, nil
}

func checkDimension(s *storage.Snapshot, vectors [][]float32) error {
	dim := s.Dimension
	if s.Empty() {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", storage.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return nil
}

type scored struct {
	position int
	score    float32
}

// Search returns up to topK chunks ranked by cosine similarity to query.
// An empty index returns an empty slice without embedding the query.
func (idx *Index) Search(ctx context.Context, query string, topK int) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if idx.Len() == 0 {
		return []core.SearchResult{}, nil
	}

	queryVector, err := idx.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	queryVector = NormalizeVector(queryVector)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(queryVector) != idx.snapshot.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d", storage.ErrDimensionMismatch, len(queryVector), idx.snapshot.Dimension)
	}

	hits := make([]scored, 0, len(idx.snapshot.Vectors))
	for i, v := range idx.snapshot.Vectors {
		if len(v) != len(queryVector) {
			continue
		}
		hits = append(hits, scored{position: i, score: dotProduct(queryVector, v)})
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].score > hits[b].score
	})

	results := make([]core.SearchResult, 0, min(topK, len(hits)))
	for _, h := range hits {
		if len(results) == topK {
			break
		}
		if h.position >= len(idx.snapshot.Chunks) {
			continue
		}
		results = append(results, core.SearchResult{
			Chunk: idx.snapshot.Chunks[h.position],
			Score: h.score,
		})
	}
	return results, nil
}
