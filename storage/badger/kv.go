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

package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tubescribe/storage"
)

// KV implements storage.KV on BadgerDB using native entry TTLs.
type KV struct {
	backend *Backend
}

var _ storage.KV = (*KV)(nil)

// newKV is an internal constructor that returns the concrete type.
func newKV(backend *Backend) *KV {
	return &KV{backend: backend}
}

// NewKV creates a KV store on backend.
func NewKV(backend *Backend) storage.KV {
	return newKV(backend)
}

// Get returns the value stored under key.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := k.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		value, err = getValue(tx, key)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key with the given ttl.
func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.backend.Update(ctx, func(tx *badger.Txn) error {
		return setValue(tx, key, value, ttl)
	})
}

// Delete removes key.
func (k *KV) Delete(ctx context.Context, key string) error {
	return k.backend.Update(ctx, func(tx *badger.Txn) error {
		err := tx.Delete([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}
