package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

func newTestCache(t *testing.T, ttl time.Duration) (*Cache[string], *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[string](ttl, WithClock(clk.Now), WithCleanupInterval(0))
	t.Cleanup(c.Close)
	return c, clk
}

func TestGetLoadsOnceWithinTTL(t *testing.T) {
	c, clk := newTestCache(t, time.Minute)
	var loads int32
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		return "table", nil
	}
	v, hit, err := c.Get(context.Background(), "src", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "table", v)

	clk.Advance(59 * time.Second)
	_, hit, err = c.Get(context.Background(), "src", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))

	clk.Advance(time.Second)
	_, hit, err = c.Get(context.Background(), "src", load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.EqualValues(t, 2, atomic.LoadInt32(&loads))
}

func TestFailedLoadIsNotStored(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	boom := errors.New("not tabular")
	_, _, err := c.Get(context.Background(), "src", func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
	_, _, ok := c.Peek("src")
	assert.False(t, ok)
}

func TestInvalidateForcesReload(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	n := 0
	load := func(context.Context) (string, error) {
		n++
		return "v", nil
	}
	_, _, _ = c.Get(context.Background(), "a", load)
	_, _, _ = c.Get(context.Background(), "b", load)
	c.Invalidate("a")
	_, hit, _ := c.Get(context.Background(), "a", load)
	assert.False(t, hit)
	_, hit, _ = c.Get(context.Background(), "b", load)
	assert.True(t, hit)
	c.InvalidateAll()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 3, n)
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	var loads int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return "v", nil
	}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.Get(context.Background(), "src", load)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}

func TestCancelledCallerDoesNotFailSharedLoad(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var loadErr error
	load := func(ctx context.Context) (string, error) {
		close(started)
		<-release
		loadErr = ctx.Err()
		return "v", nil
	}

	leaderCtx, cancel := context.WithCancel(context.Background())
	leaderDone := make(chan error, 1)
	go func() {
		_, _, err := c.Get(leaderCtx, "src", load)
		leaderDone <- err
	}()
	<-started

	type result struct {
		v   string
		err error
	}
	followerDone := make(chan result, 1)
	go func() {
		v, _, err := c.Get(context.Background(), "src", load)
		followerDone <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-leaderDone, context.Canceled)

	close(release)
	got := <-followerDone
	require.NoError(t, got.err)
	assert.Equal(t, "v", got.v)
	assert.NoError(t, loadErr, "load must not see the first caller's cancellation")

	v, hit, err := c.Get(context.Background(), "src", load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "v", v)
}

func TestPurgeRemovesExpired(t *testing.T) {
	c, clk := newTestCache(t, time.Minute)
	c.Set("a", "1")
	clk.Advance(2 * time.Minute)
	c.Set("b", "2")
	c.purge()
	assert.Equal(t, 1, c.Len())
	_, stored, ok := c.Peek("b")
	assert.True(t, ok)
	assert.Equal(t, clk.Now(), stored)
}

func TestNewDefaultsTTL(t *testing.T) {
	c := New[int](0, WithCleanupInterval(0))
	defer c.Close()
	assert.Equal(t, DefaultTTL, c.TTL())
	c.Close()
}
