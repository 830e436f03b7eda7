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

// Package file implements the shared-file storage topology: every source's
// vector index lives in a pair of files in one directory, and processes
// coordinate through advisory file locks.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/storage"
)

const (
	// DefaultRetention is how long a snapshot is served after its last write.
	DefaultRetention = 24 * time.Hour

	lockRetryDelay = 50 * time.Millisecond
)

// VectorStore implements storage.VectorBackend on a directory.
type VectorStore struct {
	dir       string
	retention time.Duration
	logger    *slog.Logger
}

var _ storage.VectorBackend = (*VectorStore)(nil)

// Option configures a VectorStore.
type Option func(*VectorStore) error

// WithRetention sets how long snapshots stay valid after their last write.
func WithRetention(d time.Duration) Option {
	return func(v *VectorStore) error {
		if d <= 0 {
			return errors.New("retention must be positive")
		}
		v.retention = d
		return nil
	}
}

// newVectorStore is an internal constructor that returns the concrete type.
func newVectorStore(dir string, opts ...Option) (*VectorStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}
	v := &VectorStore{
		dir:       dir,
		retention: DefaultRetention,
		logger:    slog.Default().With("component", "file-vectors"),
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// NewVectorStore creates a vector backend rooted at dir, creating it if needed.
func NewVectorStore(dir string, opts ...Option) (storage.VectorBackend, error) {
	return newVectorStore(dir, opts...)
}

type paths struct {
	vectors  string
	metadata string
	lock     string
}

func (v *VectorStore) pathsFor(sourceID string) paths {
	base := filepath.Join(v.dir, fmt.Sprintf("%016x", uint64(core.IDFromContent(sourceID))))
	return paths{
		vectors:  base + ".vec",
		metadata: base + ".meta.json",
		lock:     base + ".lock",
	}
}

// LoadIndex returns the persisted snapshot for sourceID, or nil if none.
func (v *VectorStore) LoadIndex(ctx context.Context, sourceID string) (*storage.Snapshot, error) {
	p := v.pathsFor(sourceID)
	var snapshot *storage.Snapshot
	err := withLock(ctx, p.lock, false, func() error {
		var err error
		snapshot, err = v.read(p)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// UpdateIndex applies fn to the freshest snapshot under an exclusive file
// lock and replaces both files. A snapshot that cannot be decoded, such as
// one left by an interrupted write, is replaced starting from empty.
func (v *VectorStore) UpdateIndex(ctx context.Context, sourceID string, fn func(*storage.Snapshot) error) error {
	p := v.pathsFor(sourceID)
	return withLock(ctx, p.lock, true, func() error {
		snapshot, err := v.read(p)
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
		if err := writeFileAtomic(p.metadata, metaData); err != nil {
			return err
		}
		if err := writeFileAtomic(p.vectors, vecData); err != nil {
			return err
		}
		v.logger.Debug("persisted index", "source", sourceID, "vectors", snapshot.Len())
		return nil
	})
}

// read returns nil when a file is missing or the snapshot is past retention.
func (v *VectorStore) read(p paths) (*storage.Snapshot, error) {
	info, err := os.Stat(p.vectors)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if time.Since(info.ModTime()) > v.retention {
		return nil, nil
	}

	vecData, err := os.ReadFile(p.vectors)
	if err != nil {
		return nil, err
	}
	metaData, err := os.ReadFile(p.metadata)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return storage.DecodeSnapshot(vecData, metaData)
}

// withLock runs fn while holding the advisory lock at path, shared or
// exclusive. The lock is released however fn returns.
func withLock(ctx context.Context, path string, exclusive bool, fn func() error) (err error) {
	lock := flock.New(path)

	var locked bool
	if exclusive {
		locked, err = lock.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = lock.TryRLockContext(ctx, lockRetryDelay)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s", path)
	}
	defer func() {
		err = errors.Join(err, lock.Unlock())
	}()

	return fn()
}

// writeFileAtomic writes data to a temporary file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
