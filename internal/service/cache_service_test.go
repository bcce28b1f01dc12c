package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type payload struct {
	Value int `json:"value"`
}

func TestCacheService_PassThroughWithoutRedis(t *testing.T) {
	cache := NewCacheService(nil, time.Minute, zap.NewNop())
	assert.False(t, cache.Enabled())

	var calls int
	load := func(context.Context) (payload, error) {
		calls++
		return payload{Value: calls}, nil
	}

	for i := 1; i <= 3; i++ {
		got, err := cached(context.Background(), cache, "k", time.Minute, false, load)
		require.NoError(t, err)
		assert.Equal(t, i, got.Value)
	}

	// no-op without a backend
	cache.Invalidate(context.Background(), "test")
}

func TestCacheService_CacheAside(t *testing.T) {
	mr, cache := newTestCache(t)
	ctx := context.Background()

	var calls int
	load := func(context.Context) (payload, error) {
		calls++
		return payload{Value: 42}, nil
	}

	got, err := cached(ctx, cache, "prod:trackvote:k", time.Minute, false, load)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Value)

	got, err = cached(ctx, cache, "prod:trackvote:k", time.Minute, false, load)
	require.NoError(t, err)
	assert.Equal(t, 42, got.Value)
	assert.Equal(t, 1, calls)

	mr.FastForward(2 * time.Minute)
	_, err = cached(ctx, cache, "prod:trackvote:k", time.Minute, false, load)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "expired entries are reloaded")
}

func TestCacheService_CorruptEntryFallsBack(t *testing.T) {
	mr, cache := newTestCache(t)
	mr.Set("k", "{not json")

	got, err := cached(context.Background(), cache, "k", time.Minute, false, func(context.Context) (payload, error) {
		return payload{Value: 7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Value)

	raw, err := mr.Get("k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":7}`, raw)
}

func TestCacheService_RedisDownFallsBack(t *testing.T) {
	mr, cache := newTestCache(t)
	mr.Close()

	got, err := cached(context.Background(), cache, "k", time.Minute, false, func(context.Context) (payload, error) {
		return payload{Value: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, got.Value)
}

func TestCacheService_LoadErrorNotCached(t *testing.T) {
	mr, cache := newTestCache(t)
	boom := errors.New("boom")

	_, err := cached(context.Background(), cache, "k", time.Minute, false, func(context.Context) (payload, error) {
		return payload{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists("k"))
}

func TestCacheService_ConcurrentMissesShareLoad(t *testing.T) {
	_, cache := newTestCache(t)

	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (payload, error) {
		calls.Add(1)
		<-release
		return payload{Value: 1}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cached(context.Background(), cache, "shared", time.Minute, true, load)
			assert.NoError(t, err)
			assert.Equal(t, 1, got.Value)
		}()
	}

	// give the goroutines time to pile up behind the first load
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestCacheService_SharedLoadSurvivesCallerCancel(t *testing.T) {
	_, cache := newTestCache(t)

	var (
		calls     atomic.Int32
		startOnce sync.Once
	)
	started := make(chan struct{})
	release := make(chan struct{})
	load := func(ctx context.Context) (payload, error) {
		calls.Add(1)
		startOnce.Do(func() { close(started) })
		select {
		case <-release:
			return payload{Value: 7}, nil
		case <-ctx.Done():
			return payload{}, ctx.Err()
		}
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = cached(firstCtx, cache, "k", time.Minute, false, load)
	}()
	<-started

	type result struct {
		got payload
		err error
	}
	second := make(chan result, 1)
	go func() {
		got, err := cached(context.Background(), cache, "k", time.Minute, false, load)
		second <- result{got, err}
	}()

	// let the second caller join the in-flight load, then drop the first
	time.Sleep(50 * time.Millisecond)
	cancelFirst()
	time.Sleep(20 * time.Millisecond)
	close(release)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, 7, res.got.Value)
	assert.Equal(t, int32(1), calls.Load())
	<-firstDone
}

func TestCacheService_Invalidate(t *testing.T) {
	mr, cache := newTestCache(t)

	mr.Set(cache.keyDashboard(), "{}")
	mr.Set(cache.keyResults(""), "[]")
	mr.Set(cache.keyTeams(), "[]")
	mr.Set("unrelated", "x")

	cache.Invalidate(context.Background(), "test")

	assert.False(t, mr.Exists(cache.keyDashboard()))
	assert.False(t, mr.Exists(cache.keyResults("")))
	assert.False(t, mr.Exists(cache.keyTeams()))
	assert.True(t, mr.Exists("unrelated"))
}
