package vectorindex

import (
	"context"

	"github.com/poiesic/tubescribe/ai"
	"github.com/poiesic/tubescribe/storage"
)

// Opener opens indexes that share one backend and embedder.
type Opener struct {
	backend  storage.VectorBackend
	embedder ai.Embedder
	opts     []Option
}

// NewOpener binds backend and embedder. opts apply to every opened index.
func NewOpener(backend storage.VectorBackend, embedder ai.Embedder, opts ...Option) (*Opener, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	return &Opener{backend: backend, embedder: embedder, opts: opts}, nil
}

// Open loads the index for sourceID. Each call reloads from the backend.
func (o *Opener) Open(ctx context.Context, sourceID string) (*Index, error) {
	return Open(ctx, sourceID, o.backend, o.embedder, o.opts...)
}
