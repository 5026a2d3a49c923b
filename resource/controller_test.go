package resource

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Jobs(t *testing.T) {
	c := NewController(Config{MaxJobs: 2})
	assert.Equal(t, int64(2), c.MaxJobs())

	require.NoError(t, c.AcquireJob(context.Background()))
	require.NoError(t, c.AcquireJob(context.Background()))

	// Third should fail with TryAcquire
	assert.False(t, c.TryAcquireJob())

	// Third should block with Acquire
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.AcquireJob(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.ReleaseJob()
	assert.True(t, c.TryAcquireJob())
}

func TestController_DefaultJobs(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, int64(runtime.GOMAXPROCS(0)), c.MaxJobs())
}

func TestController_BoundsConcurrency(t *testing.T) {
	c := NewController(Config{MaxJobs: 3})

	var (
		running atomic.Int64
		peak    atomic.Int64
		wg      sync.WaitGroup
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, c.AcquireJob(context.Background()))
			defer c.ReleaseJob()

			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(3))
}

func TestController_WaitIO(t *testing.T) {
	t.Run("Unlimited", func(t *testing.T) {
		c := NewController(Config{})
		require.NoError(t, c.WaitIO(context.Background(), 1<<30))
	})

	t.Run("LargerThanBurst", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 1000})

		// The bucket starts full, so the first burst passes immediately and
		// the remainder has to wait.
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := c.WaitIO(ctx, 2500)
		assert.Error(t, err)
	})

	t.Run("WithinBurst", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 1 << 20})
		require.NoError(t, c.WaitIO(context.Background(), 4096))
	})

	t.Run("Canceled", func(t *testing.T) {
		c := NewController(Config{IOLimitBytesPerSec: 10})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, c.WaitIO(ctx, 100))
	})
}

func TestController_Nil(t *testing.T) {
	var c *Controller

	require.NoError(t, c.AcquireJob(context.Background()))
	assert.True(t, c.TryAcquireJob())
	c.ReleaseJob()
	require.NoError(t, c.WaitIO(context.Background(), 100))
	assert.Zero(t, c.MaxJobs())
}
