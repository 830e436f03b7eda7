package storage

import (
	"fmt"
	"slices"

	"github.com/poiesic/tubescribe/core"
)

// Snapshot is the persisted state of one source's vector index.
// Vectors[i] is the embedding of Chunks[i].
type Snapshot struct {
	Dimension int
	Vectors   [][]float32
	Chunks    []core.Chunk
}

// Len returns the number of vectors.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Vectors)
}

// Empty reports whether the snapshot holds no vectors.
func (s *Snapshot) Empty() bool {
	return s.Len() == 0
}

// Append adds vectors and their chunks. An empty snapshot adopts the
// dimension of the first vector.
func (s *Snapshot) Append(vectors [][]float32, chunks []core.Chunk) error {
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: %d vectors, %d chunks", ErrCountMismatch, len(vectors), len(chunks))
	}
	if len(vectors) == 0 {
		return nil
	}

	dim := s.Dimension
	if len(s.Vectors) == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}

	s.Dimension = dim
	s.Vectors = append(s.Vectors, vectors...)
	s.Chunks = append(s.Chunks, chunks...)
	return nil
}

// Clone returns a copy that shares no slices with s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return &Snapshot{}
	}
	vectors := make([][]float32, len(s.Vectors))
	for i, v := range s.Vectors {
		vectors[i] = slices.Clone(v)
	}
	return &Snapshot{
		Dimension: s.Dimension,
		Vectors:   vectors,
		Chunks:    slices.Clone(s.Chunks),
	}
}
