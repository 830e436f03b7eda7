package ai

import (
	"context"
	"errors"
)

// ErrProviderClosed is returned by services used after their provider was closed.
var ErrProviderClosed = errors.New("ai provider is closed")

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Summarizer produces a structured summary of a transcript.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize summarizes fullText. sections holds "[M:SS] preview" lines
	// that anchor the summary to real timestamps and may be empty.
	Summarize(ctx context.Context, fullText, title, sections string) (string, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Summarizer returns the summary service.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
