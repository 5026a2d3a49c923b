package resource

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxJobs is the maximum number of concurrent jobs.
	// If 0, defaults to GOMAXPROCS.
	MaxJobs int64

	// IOLimitBytesPerSec is the maximum catalog read throughput.
	// If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller manages job slots and IO throughput.
// A nil *Controller imposes no limits.
type Controller struct {
	cfg Config

	jobSem *semaphore.Weighted

	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = int64(runtime.GOMAXPROCS(0))
	}

	c := &Controller{
		cfg:    cfg,
		jobSem: semaphore.NewWeighted(cfg.MaxJobs),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxJobs returns the number of job slots.
func (c *Controller) MaxJobs() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MaxJobs
}

// AcquireJob reserves a job slot, blocking until one is free or ctx is
// canceled.
func (c *Controller) AcquireJob(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.jobSem.Acquire(ctx, 1)
}

// TryAcquireJob reserves a job slot without blocking.
func (c *Controller) TryAcquireJob() bool {
	if c == nil {
		return true
	}
	return c.jobSem.TryAcquire(1)
}

// ReleaseJob releases a job slot.
func (c *Controller) ReleaseJob() {
	if c == nil {
		return
	}
	c.jobSem.Release(1)
}

// WaitIO waits until the IO limit allows n bytes. Requests larger than one
// second of throughput are admitted in burst-sized chunks.
func (c *Controller) WaitIO(ctx context.Context, n int64) error {
	if c == nil || c.ioLimiter == nil || n <= 0 {
		return nil
	}

	burst := int64(c.ioLimiter.Burst())
	for n > 0 {
		chunk := min(n, burst)
		if err := c.ioLimiter.WaitN(ctx, int(chunk)); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}
