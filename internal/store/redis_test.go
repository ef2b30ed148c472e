package store

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedAddr returns a local address nothing is listening on.
func closedAddr(t *testing.T) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	require.NoError(t, lis.Close())
	return addr
}

func unreachableRedis(t *testing.T) *RedisStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        closedAddr(t),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := NewRedisStore(client, "inventory:")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s := NewRedisStore(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "inventory:")
	defer s.Close()

	assert.Equal(t, "inventory:productEdits", s.key("productEdits"))
}

func TestRedisStore_UnreachableServer(t *testing.T) {
	s := unreachableRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, found, err := s.Get(ctx, "localProducts")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.False(t, found)

	assert.ErrorIs(t, s.Set(ctx, "localProducts", "[]"), ErrStorageUnavailable)
	assert.ErrorIs(t, s.Remove(ctx, "localProducts"), ErrStorageUnavailable)
	assert.Error(t, s.Ping(ctx))
}

func TestOpenRedis_FailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	kv, err := OpenRedis(ctx, closedAddr(t), "", 0, "inventory:")

	assert.Nil(t, kv)
	assert.ErrorContains(t, err, "store: OpenRedis failed to ping")
}
