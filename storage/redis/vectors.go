package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/tubescribe/storage"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultRetention is how long persisted vector indexes live.
	DefaultRetention = 24 * time.Hour

	maxWatchRetries = 16
)

// VectorStore implements storage.VectorBackend on Redis. Updates watch both
// keys and commit with MULTI/EXEC, retrying when another writer got there first.
type VectorStore struct {
	client    redis.UniversalClient
	retention time.Duration
	logger    *slog.Logger
}

var _ storage.VectorBackend = (*VectorStore)(nil)

// VectorOption configures a VectorStore.
type VectorOption func(*VectorStore) error

// WithRetention sets the expiry applied to persisted snapshots.
func WithRetention(d time.Duration) VectorOption {
	return func(v *VectorStore) error {
		if d <= 0 {
			return errors.New("retention must be positive")
		}
		v.retention = d
		return nil
	}
}

// NewVectorStore creates a vector backend on client.
func NewVectorStore(client redis.UniversalClient, opts ...VectorOption) (storage.VectorBackend, error) {
	v := &VectorStore{
		client:    client,
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "redis-vectors"),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadIndex returns the persisted snapshot for sourceID, or nil if none.
func (v *VectorStore) LoadIndex(ctx context.Context, sourceID string) (*storage.Snapshot, error) {
	return readSnapshot(ctx, v.client, sourceID)
}

// UpdateIndex applies fn to the freshest snapshot, or to an empty one when
// the persisted snapshot cannot be decoded, and persists the result.
func (v *VectorStore) UpdateIndex(ctx context.Context, sourceID string, fn func(*storage.Snapshot) error) error {
	vecKey, metaKey := storage.VectorKey(sourceID), storage.MetadataKey(sourceID)

	txf := func(tx *redis.Tx) error {
		snapshot, err := readSnapshot(ctx, tx, sourceID)
		if storage.IsCorrupt(err) {
			v.logger.Warn("discarding unreadable index", "source", sourceID, "err", err)
			snapshot, err = nil, nil
		}
		if err != nil {
			return err
		}
		if snapshot == nil {
			snapshot = &storage.Snapshot{}
		}
		if err := fn(snapshot); err != nil {
			return err
		}

		vecData, metaData, err := storage.EncodeSnapshot(snapshot)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, vecKey, vecData, v.retention)
			pipe.Set(ctx, metaKey, metaData, v.retention)
			return nil
		})
		return err
	}

	for attempt := 1; attempt <= maxWatchRetries; attempt++ {
		err := v.client.Watch(ctx, txf, vecKey, metaKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		v.logger.Debug("index update raced, retrying", "source", sourceID, "attempt", attempt)
	}
	return storage.ErrTransactionFailed
}

// readSnapshot returns nil when either half of the snapshot is missing.
func readSnapshot(ctx context.Context, c redis.Cmdable, sourceID string) (*storage.Snapshot, error) {
	values, err := c.MGet(ctx, storage.VectorKey(sourceID), storage.MetadataKey(sourceID)).Result()
	if err != nil {
		return nil, err
	}
	vecData, ok := values[0].(string)
	if !ok {
		return nil, nil
	}
	metaData, ok := values[1].(string)
	if !ok {
		return nil, nil
	}
	return storage.DecodeSnapshot([]byte(vecData), []byte(metaData))
}
