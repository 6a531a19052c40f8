package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"abtester/domain/core"
	"abtester/domain/experiment"
	"abtester/internal"
)

// DefaultWorkers bounds batch parallelism when no limit is configured
const DefaultWorkers = 4

// Evaluator runs one A/B evaluation
type Evaluator interface {
	Evaluate(a, b []float64, cfg experiment.Config) (*experiment.TestResult, error)
}

// Job is one evaluation request of a batch
type Job struct {
	Name   string
	A, B   []float64
	Config experiment.Config
	// SplitErr is set when the samples could not be built; the job fails with it
	SplitErr error
}

// JobResult is the outcome of one job. Exactly one of Result and Err is set.
type JobResult struct {
	ID        core.EvaluationID
	Name      string
	Config    experiment.Config
	Result    *experiment.TestResult
	Err       error
	StartedAt core.Timestamp
	Duration  time.Duration
}

// Runner evaluates jobs in parallel with bounded concurrency
type Runner struct {
	evaluator Evaluator
	workers   int
	logger    *internal.Logger
}

// NewRunner creates a batch runner. workers < 1 selects DefaultWorkers.
func NewRunner(evaluator Evaluator, workers int, logger *internal.Logger) *Runner {
	if workers < 1 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Runner{evaluator: evaluator, workers: workers, logger: logger}
}

// Run evaluates every job and returns results in job order. Failing jobs
// record their error without stopping the others; only cancellation of ctx
// aborts the batch.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]JobResult, error) {
	results := make([]JobResult, len(jobs))
	batchID := core.NewBatchID()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i := range jobs {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = r.runJob(jobs[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Info("[Batch] %s: %d jobs (%d failed) in %s", batchID, len(jobs), failed, time.Since(start).Round(time.Millisecond))
	return results, nil
}

func (r *Runner) runJob(job Job) JobResult {
	res := JobResult{
		ID:        core.NewEvaluationID(),
		Name:      job.Name,
		Config:    job.Config,
		StartedAt: core.Now(),
	}
	if job.SplitErr != nil {
		res.Err = job.SplitErr
	} else {
		res.Result, res.Err = r.evaluator.Evaluate(job.A, job.B, job.Config)
	}
	res.Duration = core.Now().Sub(res.StartedAt)

	if res.Err != nil {
		r.logger.Warn("[Batch] job %q (%s) failed: %v", job.Name, res.ID, res.Err)
	} else {
		r.logger.Debug("[Batch] job %q (%s): %s p=%.6g", job.Name, res.ID, res.Result.Decision, res.Result.PValue)
	}
	return res
}
