package storage

import (
	"context"
	"time"
)

// KV is a key-value store with per-entry expiry.
// Implementations must be thread-safe and support concurrent access.
type KV interface {
	// Get returns the value stored under key.
	// Returns ErrNotFound if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	// A ttl of zero stores the value without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// VectorBackend persists one vector index snapshot per source.
// Implementations must be thread-safe and support concurrent access,
// including from other processes sharing the same store.
type VectorBackend interface {
	// LoadIndex returns the persisted snapshot for sourceID.
	// Returns nil and no error if nothing is stored or the snapshot expired.
	LoadIndex(ctx context.Context, sourceID string) (*Snapshot, error)

	// UpdateIndex runs fn on the freshest persisted snapshot (empty if absent
	// or undecodable) while holding exclusive access for sourceID, then
	// persists the snapshot atomically. If fn returns an error nothing is written.
	UpdateIndex(ctx context.Context, sourceID string, fn func(*Snapshot) error) error
}
