package redis

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/tubescribe/storage"
	"github.com/redis/go-redis/v9"
)

// KV implements storage.KV with Redis strings and key expiry.
type KV struct {
	client redis.UniversalClient
}

var _ storage.KV = (*KV)(nil)

// NewKV creates a KV store on client.
func NewKV(client redis.UniversalClient) storage.KV {
	return &KV{client: client}
}

// Get returns the value stored under key.
func (k *KV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := k.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key with the given ttl.
func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return k.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes key.
func (k *KV) Delete(ctx context.Context, key string) error {
	return k.client.Del(ctx, key).Err()
}
