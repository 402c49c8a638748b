package cache_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/takemethere/internal/cache"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]cache.Cache {
	t.Helper()
	out := map[string]cache.Cache{"memory": cache.NewMemory(time.Minute)}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		r, err := cache.NewRedis(context.Background(), cache.RedisOptions{
			Addr:   addr,
			Prefix: "tmt-test:" + uuid.NewString() + ":",
		})
		require.NoError(t, err)
		out["redis"] = r
	}
	for _, c := range out {
		t.Cleanup(func() { _ = c.Close() })
	}
	return out
}

func TestCache_Contract(t *testing.T) {
	ctx := context.Background()

	for name, c := range backends(t) {
		t.Run(name+"/get missing", func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			require.ErrorIs(t, err, cache.ErrNotFound)
		})

		t.Run(name+"/set then get", func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))
			v, err := c.Get(ctx, "k1")
			require.NoError(t, err)
			require.Equal(t, "v1", string(v))
		})

		t.Run(name+"/setnx only first wins", func(t *testing.T) {
			ok, err := c.SetNX(ctx, "nx", []byte("a"), time.Minute)
			require.NoError(t, err)
			require.True(t, ok)

			ok, err = c.SetNX(ctx, "nx", []byte("b"), time.Minute)
			require.NoError(t, err)
			require.False(t, ok)

			v, err := c.Get(ctx, "nx")
			require.NoError(t, err)
			require.Equal(t, "a", string(v))
		})

		t.Run(name+"/take consumes once", func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "once", []byte("x"), time.Minute))
			v, err := c.Take(ctx, "once")
			require.NoError(t, err)
			require.Equal(t, "x", string(v))

			_, err = c.Take(ctx, "once")
			require.ErrorIs(t, err, cache.ErrNotFound)
		})

		t.Run(name+"/delete", func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "gone", []byte("x"), time.Minute))
			require.NoError(t, c.Delete(ctx, "gone"))
			_, err := c.Get(ctx, "gone")
			require.ErrorIs(t, err, cache.ErrNotFound)
		})

		t.Run(name+"/expiry", func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "short", []byte("x"), 50*time.Millisecond))
			require.Eventually(t, func() bool {
				_, err := c.Get(ctx, "short")
				return err == cache.ErrNotFound
			}, 2*time.Second, 20*time.Millisecond)
		})
	}
}

func TestMemory_TakeIsExclusive(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory(time.Minute)
	require.NoError(t, c.Set(ctx, "code", []byte("v"), time.Minute))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Take(ctx, "code"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}
