package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*RedisContextCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisContextCache(client, "test:"), mr
}

func TestGetSet(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", "- 3 check-ins", time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "- 3 check-ins", v)
	assert.True(t, mr.Exists("test:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidate(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "wellness:context:company:acme:7", "a", time.Minute))
	require.NoError(t, c.Set(ctx, "wellness:context:company:acme:30", "b", time.Minute))
	require.NoError(t, c.Set(ctx, "wellness:context:company:globex:7", "c", time.Minute))

	require.NoError(t, c.Invalidate(ctx, "acme"))
	assert.False(t, mr.Exists("test:wellness:context:company:acme:7"))
	assert.False(t, mr.Exists("test:wellness:context:company:acme:30"))
	assert.True(t, mr.Exists("test:wellness:context:company:globex:7"))

	require.NoError(t, c.Invalidate(ctx, "nobody"))
}

func TestInvalidateCoversCompanyContextKeys(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	assert.Equal(t, "wellness:context:company:acme:7", CompanyContextKey("acme", 7))
	for _, days := range []int{7, 14, 90} {
		require.NoError(t, c.Set(ctx, CompanyContextKey("acme", days), "block", time.Minute))
	}
	require.NoError(t, c.Set(ctx, CompanyContextKey("acme-labs", 7), "block", time.Minute))

	require.NoError(t, c.Invalidate(ctx, "acme"))
	for _, days := range []int{7, 14, 90} {
		_, ok, err := c.Get(ctx, CompanyContextKey("acme", days))
		require.NoError(t, err)
		assert.False(t, ok, days)
	}
	assert.True(t, mr.Exists("test:"+CompanyContextKey("acme-labs", 7)))
}

func TestNewClientFailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = NewClient(ctx, addr, "", 0)
	assert.Error(t, err)
}
