package vectorindex

import "errors"

var (
	// ErrBackendRequired is returned when no vector backend is supplied.
	ErrBackendRequired = errors.New("vector backend is required")

	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrEmbeddingCountMismatch is returned when the embedder returns a
	// different number of vectors than texts it was given.
	ErrEmbeddingCountMismatch = errors.New("embedder returned wrong number of vectors")
)
