package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/poiesic/tubescribe/core"
	"github.com/poiesic/tubescribe/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestConnect_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Connect(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

func TestKV(t *testing.T) {
	mr, client := newTestClient(t)
	kv := NewKV(client)
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Minute))
	value, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
	assert.Equal(t, time.Minute, mr.TTL("k"))

	mr.FastForward(2 * time.Minute)
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, kv.Delete(ctx, "k"))
	_, err = kv.Get(ctx, "k")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestVectorStore_RoundTrip(t *testing.T) {
	mr, client := newTestClient(t)
	vectors, err := NewVectorStore(client, WithRetention(time.Hour))
	require.NoError(t, err)
	ctx := context.Background()

	snapshot, err := vectors.LoadIndex(ctx, "src")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	chunks := []core.Chunk{{Text: "a", Start: 1}, {Text: "b", Start: 2}}
	require.NoError(t, vectors.UpdateIndex(ctx, "src", func(s *storage.Snapshot) error {
		return s.Append([][]float32{{0.6, 0.8}, {1, 0}}, chunks)
	}))

	snapshot, err = vectors.LoadIndex(ctx, "src")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, chunks, snapshot.Chunks)
	assert.Equal(t, [][]float32{{0.6, 0.8}, {1, 0}}, snapshot.Vectors)

	assert.True(t, mr.Exists("vecidx:src"))
	assert.True(t, mr.Exists("vecmeta:src"))
	assert.Equal(t, time.Hour, mr.TTL("vecidx:src"))
	assert.Equal(t, time.Hour, mr.TTL("vecmeta:src"))

	mr.FastForward(2 * time.Hour)
	snapshot, err = vectors.LoadIndex(ctx, "src")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestVectorStore_CorruptData(t *testing.T) {
	mr, client := newTestClient(t)
	vectors, err := NewVectorStore(client)
	require.NoError(t, err)

	require.NoError(t, mr.Set("vecidx:src", "x"))
	require.NoError(t, mr.Set("vecmeta:src", "not json"))

	_, err = vectors.LoadIndex(context.Background(), "src")
	assert.Error(t, err)
}

func TestVectorStore_UpdateReplacesCorruptData(t *testing.T) {
	mr, client := newTestClient(t)
	vectors, err := NewVectorStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, mr.Set("vecidx:src", "x"))
	require.NoError(t, mr.Set("vecmeta:src", "not json"))

	chunks := []core.Chunk{{Text: "a", Start: 0}}
	require.NoError(t, vectors.UpdateIndex(ctx, "src", func(s *storage.Snapshot) error {
		assert.True(t, s.Empty())
		return s.Append([][]float32{{1, 0}}, chunks)
	}))

	snapshot, err := vectors.LoadIndex(ctx, "src")
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, chunks, snapshot.Chunks)
}

func TestVectorStore_ConcurrentPopulateOnce(t *testing.T) {
	_, client := newTestClient(t)
	vectors, err := NewVectorStore(client)
	require.NoError(t, err)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := vectors.UpdateIndex(ctx, "src", func(s *storage.Snapshot) error {
				if !s.Empty() {
					return nil
				}
				return s.Append([][]float32{{1}}, []core.Chunk{{Text: "only"}})
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snapshot, err := vectors.LoadIndex(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Len())
}
