package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func counting(calls *int32, v any) FetchFunc {
	return func(context.Context) (any, error) {
		atomic.AddInt32(calls, 1)
		return v, nil
	}
}

func TestGet_CoalescesConcurrentCallers(t *testing.T) {
	c := New()
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	fetch := func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		once.Do(func() { close(started) })
		<-release
		return "value", nil
	}

	const n = 50
	var wg sync.WaitGroup
	results := make([]any, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = c.Get(context.Background(), "k", time.Minute, fetch)
		}(i)
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "value", results[i])
	}
}

func TestGet_TTLBoundary(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := New(WithClock(clk.Now))
	var calls int32
	ttl := 10 * time.Second
	ctx := context.Background()

	_, err := c.Get(ctx, "k", ttl, counting(&calls, 1))
	require.NoError(t, err)
	require.Equal(t, int32(1), calls)

	clk.Advance(ttl - time.Millisecond)
	_, err = c.Get(ctx, "k", ttl, counting(&calls, 2))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls, "entry younger than ttl must be served from cache")

	clk.Advance(2 * time.Millisecond)
	v, err := c.Get(ctx, "k", ttl, counting(&calls, 3))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls, "expired entry must be refetched")
	assert.Equal(t, 3, v)
}

func TestGet_DefaultTTL(t *testing.T) {
	clk := &fakeClock{now: time.Unix(0, 0)}
	c := New(WithClock(clk.Now), WithDefaultTTL(time.Second))
	var calls int32

	_, _ = c.Get(context.Background(), "k", 0, counting(&calls, "a"))
	clk.Advance(999 * time.Millisecond)
	_, _ = c.Get(context.Background(), "k", 0, counting(&calls, "a"))
	assert.Equal(t, int32(1), calls)

	clk.Advance(time.Millisecond)
	_, _ = c.Get(context.Background(), "k", -1, counting(&calls, "a"))
	assert.Equal(t, int32(2), calls)
}

func TestGet_FailureIsNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	var calls int32

	_, err := c.Get(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())

	v, err := c.Get(context.Background(), "k", time.Minute, counting(&calls, "ok"))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), calls)
}

func TestGet_FailurePropagatesToAllWaiters(t *testing.T) {
	c := New()
	boom := errors.New("store down")
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	fetch := func(context.Context) (any, error) {
		once.Do(func() { close(started) })
		<-release
		return nil, boom
	}

	const n = 5
	var wg sync.WaitGroup
	errs := make(chan error, n)
	go func() {
		<-started
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Get(context.Background(), "k", time.Minute, fetch)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	failed := 0
	for err := range errs {
		if errors.Is(err, boom) {
			failed++
		}
	}
	// Late arrivals start their own fetch which fails the same way.
	assert.Equal(t, n, failed)
	assert.Equal(t, 0, c.Len())
}

func TestGet_WaiterCancellationDoesNotCancelFetch(t *testing.T) {
	c := New()
	release := make(chan struct{})
	var fetchCtxErr error

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "k", time.Minute, func(fctx context.Context) (any, error) {
			<-release
			fetchCtxErr = fctx.Err()
			return "late", nil
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, fetchCtxErr)

	var calls int32
	v, err := c.Get(context.Background(), "k", time.Minute, counting(&calls, "other"))
	require.NoError(t, err)
	assert.Equal(t, "late", v)
	assert.Zero(t, calls)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	c := New()
	var calls int32
	ctx := context.Background()

	_, _ = c.Get(ctx, "k", time.Hour, counting(&calls, 1))
	c.Invalidate("k")
	_, _ = c.Get(ctx, "k", time.Hour, counting(&calls, 1))
	assert.Equal(t, int32(2), calls)
}

func TestInvalidate_DuringFetchDropsResult(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), "k", time.Hour, func(context.Context) (any, error) {
			close(started)
			<-release
			return "stale", nil
		})
	}()

	<-started
	c.Invalidate("k")
	close(release)
	<-done

	assert.Equal(t, 0, c.Len(), "fetch settled after invalidation must not repopulate")

	var calls int32
	v, err := c.Get(context.Background(), "k", time.Hour, counting(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, "fresh", v)
	assert.Equal(t, int32(1), calls)
}

func TestInvalidate_NeverLeavesStaleValue(t *testing.T) {
	c := New()
	var version int64
	fetch := func(context.Context) (any, error) {
		return atomic.LoadInt64(&version), nil
	}

	for round := 0; round < 200; round++ {
		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = c.Get(context.Background(), "k", time.Hour, fetch)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			atomic.AddInt64(&version, 1)
			c.Invalidate("k")
		}()
		wg.Wait()

		v, err := c.Get(context.Background(), "k", time.Hour, fetch)
		require.NoError(t, err)
		require.Equal(t, atomic.LoadInt64(&version), v, "round %d", round)
	}
}

func TestGet_FetchOwnsKeyFromTheStart(t *testing.T) {
	c := New()
	seen := make(chan bool, 1)
	_, err := c.Get(context.Background(), "k", time.Hour, func(context.Context) (any, error) {
		c.mu.Lock()
		_, ok := c.inflight["k"]
		c.mu.Unlock()
		seen <- ok
		return 1, nil
	})
	require.NoError(t, err)
	assert.True(t, <-seen)

	c.mu.Lock()
	assert.Empty(t, c.inflight, "settled fetch releases the key")
	c.mu.Unlock()
}

func TestInvalidatePattern_RemovesOnlyMatchingKeys(t *testing.T) {
	c := New()
	for _, k := range []string{"items:count:a", "items:count:b", "items:list", "other:items:count:x"} {
		c.Set(k, 1)
	}

	var mu sync.Mutex
	var seen []string
	unsub := c.AddInvalidationListener(func(key string) {
		mu.Lock()
		seen = append(seen, key)
		mu.Unlock()
	})
	defer unsub()

	n, err := c.InvalidatePattern("^items:count:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, c.Len())

	sort.Strings(seen)
	assert.Equal(t, []string{"items:count:a", "items:count:b"}, seen)
}

func TestInvalidatePattern_InvalidRegexp(t *testing.T) {
	c := New()
	c.Set("a", 1)
	n, err := c.InvalidatePattern("(")
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, c.Len())
}

func TestSet_SeedsWithoutFetch(t *testing.T) {
	c := New()
	c.Set("k", 42)
	var calls int32
	v, err := c.Get(context.Background(), "k", time.Minute, counting(&calls, 0))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Zero(t, calls)
}

func TestClearAll_NoNotifications(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.Set("b", 2)
	var fired int32
	c.AddInvalidationListener(func(string) { atomic.AddInt32(&fired, 1) })

	c.ClearAll()
	assert.Equal(t, 0, c.Len())
	assert.Zero(t, atomic.LoadInt32(&fired))
}

func TestListener_UnsubscribeIsIdempotent(t *testing.T) {
	c := New()
	var fired int32
	unsub := c.AddInvalidationListener(func(string) { atomic.AddInt32(&fired, 1) })

	c.Invalidate("x")
	unsub()
	unsub()
	c.Invalidate("x")
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestListener_MayCallBackIntoCache(t *testing.T) {
	c := New()
	c.Set("a", 1)
	c.AddInvalidationListener(func(key string) {
		// Listeners run outside the lock.
		c.Set("seen:"+key, true)
	})
	c.Invalidate("a")
	assert.Equal(t, 1, c.Len())
}

func TestFetch_Typed(t *testing.T) {
	c := New()
	n, err := Fetch(context.Background(), c, "n", time.Minute, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = Fetch(context.Background(), c, "n", time.Minute, func(context.Context) (string, error) { return "x", nil })
	assert.Error(t, err, "type mismatch on a live entry must be reported")
}

func TestClose_DetachesListeners(t *testing.T) {
	c := New()
	var fired int32
	c.AddInvalidationListener(func(string) { atomic.AddInt32(&fired, 1) })
	c.Set("a", 1)
	c.Close()
	c.Invalidate("a")
	assert.Zero(t, atomic.LoadInt32(&fired))
	assert.Equal(t, 0, c.Len())
}
