package openai

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/poiesic/tubescribe/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
// The underlying client is created on first use.
type Embedder struct {
	config *ai.Config
	logger *slog.Logger

	once     sync.Once
	embedder embeddings.Embedder
	initErr  error
	closed   atomic.Bool
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Embedder{
		config: config,
		logger: slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

func (e *Embedder) client() (embeddings.Embedder, error) {
	e.once.Do(func() {
		client, err := openai.New(
			openai.WithBaseURL(e.config.EmbeddingHost),
			openai.WithToken(e.config.APIToken),
			openai.WithEmbeddingModel(e.config.EmbeddingModel),
		)
		if err != nil {
			e.initErr = err
			return
		}
		e.embedder, e.initErr = embeddings.NewEmbedder(client,
			embeddings.WithStripNewLines(true),
			embeddings.WithBatchSize(e.config.EmbeddingBatchSize),
		)
		e.logger.Debug("embedding client initialized", "host", e.config.EmbeddingHost, "model", e.config.EmbeddingModel)
	})
	return e.embedder, e.initErr
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings.
// Requests are split into batches of the configured size.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if e.closed.Load() {
		return nil, ai.ErrProviderClosed
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	client, err := e.client()
	if err != nil {
		return nil, err
	}

	e.logger.Debug("generating embeddings for texts", "count", len(texts))
	vectors, err := client.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}

func (e *Embedder) close() {
	e.closed.Store(true)
}
