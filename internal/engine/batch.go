// internal/engine/batch.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/scrolllab/api/schemas"
	"github.com/xkilldash9x/scrolllab/internal/scroll"
)

// Job is one pointer sequence to replay on its own controller.
type Job struct {
	Index     int
	Name      string
	Technique scroll.Technique
	Events    []schemas.PointerEvent
}

// JobResult pairs a job with its replay outcome.
type JobResult struct {
	Index     int
	Name      string
	Technique scroll.Technique
	Result    ReplayResult
	Err       error
}

// ControllerFactory builds a fresh controller for a job. Controllers are never
// shared between jobs.
type ControllerFactory func(job Job) (*scroll.Controller, error)

// Batch replays independent jobs on a pool of workers.
type Batch struct {
	replayer      *Replayer
	newController ControllerFactory
	concurrency   int
	logger        *zap.Logger
	wg            sync.WaitGroup

	// stateLock protects isRunning.
	stateLock sync.Mutex
	isRunning bool
}

// NewBatch validates its dependencies and builds a pool. A non-positive
// concurrency runs one worker.
func NewBatch(replayer *Replayer, factory ControllerFactory, concurrency int, logger *zap.Logger) (*Batch, error) {
	if replayer == nil {
		return nil, errors.New("replayer cannot be nil")
	}
	if factory == nil {
		return nil, errors.New("controller factory cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Batch{
		replayer:      replayer,
		newController: factory,
		concurrency:   concurrency,
		logger:        logger.With(zap.String("component", "batch")),
	}, nil
}

// Start launches the workers. Results are sent on the returned channel, which
// is closed once every worker has exited.
func (b *Batch) Start(ctx context.Context, jobs <-chan Job) (<-chan JobResult, error) {
	b.stateLock.Lock()
	defer b.stateLock.Unlock()
	if b.isRunning {
		return nil, ErrAlreadyRunning
	}
	b.isRunning = true

	results := make(chan JobResult, b.concurrency)
	b.logger.Debug("Starting batch workers.", zap.Int("concurrency", b.concurrency))
	for i := 0; i < b.concurrency; i++ {
		b.wg.Add(1)
		go b.runWorker(ctx, i+1, jobs, results)
	}
	go func() {
		b.wg.Wait()
		close(results)
	}()
	return results, nil
}

// Stop waits for the workers to exit. They exit when jobs is closed and
// drained or when the context passed to Start is cancelled.
func (b *Batch) Stop() {
	b.wg.Wait()
	b.stateLock.Lock()
	b.isRunning = false
	b.stateLock.Unlock()
}

// Run replays every job and returns the results in job order.
func (b *Batch) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	queue := make(chan Job, len(jobs))
	for i, job := range jobs {
		job.Index = i
		queue <- job
	}
	close(queue)

	results, err := b.Start(ctx, queue)
	if err != nil {
		return nil, err
	}
	defer b.Stop()

	out := make([]JobResult, len(jobs))
	seen := 0
	for res := range results {
		out[res.Index] = res
		seen++
	}
	if seen < len(jobs) {
		return out, fmt.Errorf("batch interrupted after %d of %d jobs: %w", seen, len(jobs), ctx.Err())
	}
	return out, nil
}

func (b *Batch) runWorker(ctx context.Context, workerID int, jobs <-chan Job, results chan<- JobResult) {
	defer b.wg.Done()
	logger := b.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Context cancelled, worker shutting down.", zap.Error(ctx.Err()))
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			res := b.process(ctx, job, logger)
			select {
			case results <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *Batch) process(ctx context.Context, job Job, logger *zap.Logger) JobResult {
	res := JobResult{Index: job.Index, Name: job.Name, Technique: job.Technique}
	ctrl, err := b.newController(job)
	if err != nil {
		res.Err = fmt.Errorf("failed to build controller for %s: %w", job.Name, err)
		logger.Warn("Skipping job.", zap.String("job", job.Name), zap.Error(err))
		return res
	}
	res.Technique = ctrl.Technique()
	res.Result = b.replayer.Run(ctx, ctrl, job.Events)
	logger.Debug("Job replayed.",
		zap.String("job", job.Name),
		zap.Int("frames", res.Result.Frames),
		zap.Float64("final_offset", res.Result.Final.State.ContentOffset))
	return res
}
