package redis_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stocksync/internal/infrastructure/redis"
)

// Requiere un Redis real: REDIS_TEST_ADDR=localhost:6379 go test ./internal/infrastructure/redis/...
func testClient(t *testing.T) *goredis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR no definido")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestLimiter_SharedBucketAcrossInstances(t *testing.T) {
	client := testClient(t)
	key := "stocksync:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	// Dos instancias con la misma clave simulan dos procesos con la misma cuota.
	a := redis.NewLimiter(client, key, 60)
	b := redis.NewLimiter(client, key, 60)
	ctx := context.Background()

	ok, err := a.Acquire(ctx, 40, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = b.Acquire(ctx, 30, 0)
	require.NoError(t, err)
	assert.False(t, ok, "la cuota es compartida")

	ok, err = b.Acquire(ctx, 20, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_TimeoutWhileEmpty(t *testing.T) {
	client := testClient(t)
	key := "stocksync:test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), key) })

	l := redis.NewLimiter(client, key, 60)
	ctx := context.Background()
	ok, err := l.Acquire(ctx, 60, 0)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire(ctx, 1, 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}
