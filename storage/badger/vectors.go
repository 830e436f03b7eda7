package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tubescribe/storage"
)

// DefaultRetention is how long persisted vector indexes live.
const DefaultRetention = 24 * time.Hour

// VectorStore implements storage.VectorBackend on BadgerDB.
// Vectors and chunk metadata are written together in one transaction.
type VectorStore struct {
	backend   *Backend
	retention time.Duration
	logger    *slog.Logger
}

var _ storage.VectorBackend = (*VectorStore)(nil)

// VectorOption configures a VectorStore.
type VectorOption func(*VectorStore) error

// WithRetention sets the TTL applied to persisted snapshots.
func WithRetention(d time.Duration) VectorOption {
	return func(v *VectorStore) error {
		if d <= 0 {
			return errors.New("retention must be positive")
		}
		v.retention = d
		return nil
	}
}

// NewVectorStore creates a vector backend on backend.
func NewVectorStore(backend *Backend, opts ...VectorOption) (storage.VectorBackend, error) {
	v := &VectorStore{
		backend:   backend,
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "badger-vectors"),
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
	var snapshot *storage.Snapshot
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		snapshot, err = readSnapshot(tx, sourceID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// UpdateIndex applies fn to the freshest snapshot, or to an empty one when
// the persisted snapshot cannot be decoded, and persists the result.
func (v *VectorStore) UpdateIndex(ctx context.Context, sourceID string, fn func(*storage.Snapshot) error) error {
	unlock := v.backend.LockKey(storage.VectorKey(sourceID))
	defer unlock()

	return v.backend.Update(ctx, func(tx *badger.Txn) error {
		snapshot, err := readSnapshot(tx, sourceID)
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
		if err := setValue(tx, storage.VectorKey(sourceID), vecData, v.retention); err != nil {
			return err
		}
		if err := setValue(tx, storage.MetadataKey(sourceID), metaData, v.retention); err != nil {
			return err
		}
		v.logger.Debug("persisted index", "source", sourceID, "vectors", snapshot.Len())
		return nil
	})
}

// readSnapshot returns nil when either half of the snapshot is missing.
func readSnapshot(tx *badger.Txn, sourceID string) (*storage.Snapshot, error) {
	vecData, err := getValue(tx, storage.VectorKey(sourceID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	metaData, err := getValue(tx, storage.MetadataKey(sourceID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return storage.DecodeSnapshot(vecData, metaData)
}
