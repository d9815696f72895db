// Package pool bounds how many inspector child processes run concurrently.
// It knows nothing about quick/deep semantics or resume — it is a plain
// fan-out/fan-in dispatcher of (VideoFile, ScanDepth) jobs.
package pool

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

// JobFunc runs the Inspector Driver and Classifier for one file at one
// depth and returns the resulting ScanResult. It must not panic for
// ordinary failures — driver errors should already be folded into an
// error-status ScanResult by the caller.
type JobFunc func(ctx context.Context, file model.VideoFile, depth model.ScanDepth) model.ScanResult

// ResultFunc receives each completed ScanResult as it finishes. It may be
// called from multiple goroutines concurrently and must synchronize its
// own state.
type ResultFunc func(model.ScanResult)

// Pool dispatches jobs with a strict upper bound on concurrent execution.
type Pool struct {
	n   int64
	sem *semaphore.Weighted
}

// New builds a Pool that runs at most n jobs concurrently.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{n: int64(n), sem: semaphore.NewWeighted(int64(n))}
}

// Run dispatches one job per file at depth, invoking onResult as each
// completes. It blocks until every file has been dispatched and every
// in-flight job has returned, or until ctx is cancelled — in which case no
// new jobs are launched and Run returns after the jobs already running
// finish or are signaled to stop by job itself observing ctx.
func (p *Pool) Run(ctx context.Context, files []model.VideoFile, depth model.ScanDepth, job JobFunc, onResult ResultFunc) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, f := range files {
		f := f

		// Cancellation is checked before each job launches, satisfying the
		// "no new jobs start after cancellation" guarantee.
		if ctx.Err() != nil {
			break
		}

		if err := p.sem.Acquire(gctx, 1); err != nil {
			// gctx is cancelled; stop submitting and let in-flight jobs drain.
			break
		}

		g.Go(func() (err error) {
			defer p.sem.Release(1)
			defer func() {
				if r := recover(); r != nil {
					onResult(model.ScanResult{
						File:   f,
						Status: model.StatusError,
						Depth:  depth,
						Error:  fmt.Sprintf("panic during inspection: %v", r),
					})
				}
			}()

			result := job(gctx, f, depth)
			onResult(result)
			return nil
		})
	}

	return g.Wait()
}

// Concurrency returns the pool's configured upper bound, N.
func (p *Pool) Concurrency() int {
	return int(atomic.LoadInt64(&p.n))
}
