package xmatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nbrsim/xmatch/blobstore"
	"github.com/nbrsim/xmatch/catalogio"
	"github.com/nbrsim/xmatch/codec"
	"github.com/nbrsim/xmatch/ledger"
	"github.com/nbrsim/xmatch/resource"
)

// ErrInvalidJob is returned for jobs that cannot be run as described.
var ErrInvalidJob = errors.New("invalid job")

// Job is one association of a detection catalog against a truth catalog.
// Catalog names are resolved against the batch's store.
type Job struct {
	ID         string  `json:"id"`
	Detections string  `json:"detections"`
	Truth      string  `json:"truth"`
	Output     string  `json:"output"`
	Radius     float64 `json:"radius,omitempty"`
	Allow      int     `json:"allow,omitempty"`
}

func (j Job) validate() error {
	switch {
	case j.ID == "":
		return fmt.Errorf("%w: missing id", ErrInvalidJob)
	case strings.ContainsAny(j.ID, `/\`) || strings.Contains(j.ID, ".."):
		return fmt.Errorf("%w: %q: id must not contain path separators or \"..\"", ErrInvalidJob, j.ID)
	case j.Detections == "" || j.Truth == "" || j.Output == "":
		return fmt.Errorf("%w: %s: detections, truth and output are required", ErrInvalidJob, j.ID)
	case j.Output == j.Detections || j.Output == j.Truth:
		return fmt.Errorf("%w: %s: output overwrites an input", ErrInvalidJob, j.ID)
	}
	return nil
}

// JobResult is the outcome of one job.
type JobResult struct {
	ID      string
	Summary *Summary // nil when skipped or failed
	Skipped bool
	Err     error
}

// ReadJobs reads a job list stored as a JSON array.
func ReadJobs(ctx context.Context, store blobstore.BlobStore, name string) ([]Job, error) {
	blob, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open jobs %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("read jobs %s: %w", name, err)
	}

	var jobs []Job
	if err := codec.Default.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs %s: %w", name, err)
	}
	return jobs, nil
}

// Batch runs association jobs against a store.
type Batch struct {
	runID      string
	matcher    *Matcher
	store      blobstore.BlobStore
	ledger     ledger.Ledger
	controller *resource.Controller
	force      bool
	assocOpts  []AssociateOption
	ioOpts     []catalogio.Option
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithLedger records completed jobs in l and skips jobs already in it.
func WithLedger(l ledger.Ledger) BatchOption {
	return func(b *Batch) {
		b.ledger = l
	}
}

// WithController bounds job concurrency and catalog read throughput.
func WithController(c *resource.Controller) BatchOption {
	return func(b *Batch) {
		b.controller = c
	}
}

// WithForce reruns jobs even if the ledger has them.
func WithForce(force bool) BatchOption {
	return func(b *Batch) {
		b.force = force
	}
}

// WithAssociateOptions sets the association options applied to every job.
// A job's own Radius and Allow take precedence.
func WithAssociateOptions(optFns ...AssociateOption) BatchOption {
	return func(b *Batch) {
		b.assocOpts = append(b.assocOpts, optFns...)
	}
}

// WithCatalogOptions sets options for reading and writing catalogs.
func WithCatalogOptions(optFns ...catalogio.Option) BatchOption {
	return func(b *Batch) {
		b.ioOpts = append(b.ioOpts, optFns...)
	}
}

// NewBatch creates a batch that runs jobs with m against store.
func (m *Matcher) NewBatch(store blobstore.BlobStore, optFns ...BatchOption) *Batch {
	b := &Batch{
		runID:   uuid.NewString(),
		matcher: m,
		store:   store,
	}
	for _, fn := range optFns {
		fn(b)
	}
	if b.controller == nil {
		b.controller = resource.NewController(resource.Config{})
	}
	b.ioOpts = append([]catalogio.Option{catalogio.WithLimiter(b.controller)}, b.ioOpts...)
	return b
}

// RunID identifies this batch in logs and ledger entries.
func (b *Batch) RunID() string { return b.runID }

// Run executes jobs concurrently and returns one result per job in input
// order. A failing job does not stop the others; the returned error joins
// every job error.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))

	seen := make(map[string]int, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		results[i].ID = job.ID
		if first, dup := seen[job.ID]; dup && job.ID != "" {
			err := fmt.Errorf("%w: %s: duplicate of job %d", ErrInvalidJob, job.ID, first)
			results[i].Err = err
			b.matcher.opts.metricsCollector.RecordJob(false, 0, err)
			b.matcher.opts.logger.LogJob(ctx, job.ID, false, err)
			continue
		}
		seen[job.ID] = i

		if err := b.controller.AcquireJob(ctx); err != nil {
			results[i].Err = err
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer b.controller.ReleaseJob()
			results[i] = b.RunJob(ctx, job)
		}()
	}
	wg.Wait()

	var (
		errs    []error
		skipped int
	)
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("job %s: %w", r.ID, r.Err))
		}
		if r.Skipped {
			skipped++
		}
	}
	b.matcher.opts.logger.LogBatch(ctx, b.runID, len(jobs), skipped, len(errs))

	return results, errors.Join(errs...)
}

// RunJob executes a single job without acquiring a job slot.
func (b *Batch) RunJob(ctx context.Context, job Job) JobResult {
	start := time.Now()

	res := b.runJob(ctx, job)

	b.matcher.opts.metricsCollector.RecordJob(res.Skipped, time.Since(start), res.Err)
	b.matcher.opts.logger.LogJob(ctx, job.ID, res.Skipped, res.Err)

	return res
}

func (b *Batch) runJob(ctx context.Context, job Job) JobResult {
	res := JobResult{ID: job.ID}

	if err := job.validate(); err != nil {
		res.Err = err
		return res
	}

	if b.ledger != nil && !b.force {
		_, done, err := b.ledger.Lookup(ctx, job.ID)
		if err != nil {
			res.Err = err
			return res
		}
		if done {
			res.Skipped = true
			return res
		}
	}

	det, err := catalogio.ReadDetections(ctx, b.store, job.Detections, b.ioOpts...)
	if err != nil {
		res.Err = err
		return res
	}
	truth, err := catalogio.ReadTruth(ctx, b.store, job.Truth, b.ioOpts...)
	if err != nil {
		res.Err = err
		return res
	}

	assocOpts := b.assocOpts
	if job.Radius != 0 {
		assocOpts = append(assocOpts[:len(assocOpts):len(assocOpts)], WithRadius(job.Radius))
	}
	if job.Allow != 0 {
		assocOpts = append(assocOpts[:len(assocOpts):len(assocOpts)], WithAllow(job.Allow))
	}

	out, summary, err := b.matcher.Associate(ctx, det, truth, assocOpts...)
	if err != nil {
		res.Err = err
		return res
	}

	if err := catalogio.WriteAugmented(ctx, b.store, job.Output, out, b.ioOpts...); err != nil {
		res.Err = err
		return res
	}
	res.Summary = summary

	if b.ledger != nil {
		err := b.ledger.Record(ctx, ledger.Entry{
			JobID:       job.ID,
			RunID:       b.runID,
			Output:      job.Output,
			Matched:     summary.Matched,
			Total:       summary.Total,
			Fraction:    summary.Fraction,
			CompletedAt: time.Now().UTC(),
		})
		// A forced rerun or a concurrent runner already holds the entry.
		if err != nil && !errors.Is(err, ledger.ErrAlreadyRecorded) {
			res.Err = err
		}
	}

	return res
}
