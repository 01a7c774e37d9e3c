// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"vision-scan/internal/observability"
)

// MaxWorkers caps the pool size to avoid resource exhaustion.
const MaxWorkers = 16

// Job is one unit of work.
type Job[T any] struct {
	JobID string
	Input string // reported to the observer
	Run   func(ctx context.Context) (T, error)
}

// Result is the outcome of a Job.
type Result[T any] struct {
	JobID    string
	Index    int // submission position
	Value    T
	Error    error
	Duration time.Duration
}

// ProcessingStats tracks processing statistics for one Run
type ProcessingStats struct {
	TotalJobs     int           `json:"total_jobs"`
	Succeeded     int           `json:"succeeded"`
	Failed        int           `json:"failed"`
	TotalDuration time.Duration `json:"total_duration_ms"`
	WorkerCount   int           `json:"worker_count"`
	AvgJobTime    time.Duration `json:"avg_job_time_ms"`
}

// ProgressCallback is called when a job is completed
type ProgressCallback func(completed, total int, input string)

// WorkerPool runs jobs on a fixed number of goroutines.
type WorkerPool[T any] struct {
	workers    int
	jobTimeout time.Duration
	observer   *observability.StandardObserver
	progress   ProgressCallback
}

// NewWorkerPool creates a pool. A worker count below one uses the CPU
// count, capped at MaxWorkers.
func NewWorkerPool[T any](workers int, observer *observability.StandardObserver) *WorkerPool[T] {
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	return &WorkerPool[T]{
		workers:  workers,
		observer: observer,
	}
}

// Workers returns the pool size
func (wp *WorkerPool[T]) Workers() int {
	return wp.workers
}

// SetJobTimeout bounds each job. Zero disables the limit.
func (wp *WorkerPool[T]) SetJobTimeout(d time.Duration) {
	wp.jobTimeout = d
}

// SetProgressCallback registers a completion callback. It is called from
// the collecting goroutine, never concurrently.
func (wp *WorkerPool[T]) SetProgressCallback(cb ProgressCallback) {
	wp.progress = cb
}

type indexedJob[T any] struct {
	index int
	job   Job[T]
}

// Run executes jobs and returns their results in submission order. Jobs
// not started before ctx ends are reported with the context error.
func (wp *WorkerPool[T]) Run(ctx context.Context, jobs []Job[T]) ([]Result[T], *ProcessingStats) {
	start := time.Now()

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "run", fmt.Sprintf("%d jobs", len(jobs)))
	}

	results := make([]Result[T], len(jobs))
	queue := make(chan indexedJob[T])
	done := make(chan Result[T], wp.workers)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for ij := range queue {
				done <- wp.processJob(ctx, ij, workerID)
			}
		}(i)
	}

	go func() {
		defer close(queue)
		for i, job := range jobs {
			select {
			case queue <- indexedJob[T]{index: i, job: job}:
			case <-ctx.Done():
				for j := i; j < len(jobs); j++ {
					done <- Result[T]{JobID: jobs[j].JobID, Index: j, Error: ctx.Err()}
				}
				return
			}
		}
	}()

	stats := &ProcessingStats{TotalJobs: len(jobs), WorkerCount: wp.workers}
	var jobTime time.Duration
	for completed := 1; completed <= len(jobs); completed++ {
		r := <-done
		results[r.Index] = r
		jobTime += r.Duration
		if r.Error != nil {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		if wp.progress != nil {
			wp.progress(completed, len(jobs), jobs[r.Index].Input)
		}
	}
	wg.Wait()

	stats.TotalDuration = time.Since(start)
	stats.AvgJobTime = jobTime / time.Duration(max(len(jobs), 1))

	if finishTiming != nil {
		finishTiming(stats.Failed == 0, map[string]interface{}{
			"total_jobs":   stats.TotalJobs,
			"failed":       stats.Failed,
			"worker_count": wp.workers,
		})
	}
	return results, stats
}

// processJob executes a single job, recovering from panics
func (wp *WorkerPool[T]) processJob(ctx context.Context, ij indexedJob[T], workerID int) (result Result[T]) {
	start := time.Now()
	result = Result[T]{JobID: ij.job.JobID, Index: ij.index}

	var finishTiming func(bool, map[string]interface{})
	if wp.observer != nil {
		finishTiming = wp.observer.StartTiming("worker_pool", "process_job", ij.job.Input)
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("job %s panicked: %v", ij.job.JobID, r)
		}
		result.Duration = time.Since(start)
		if finishTiming != nil {
			finishTiming(result.Error == nil, map[string]interface{}{
				"worker_id":   workerID,
				"duration_ms": result.Duration.Milliseconds(),
			})
		}
	}()

	if err := ctx.Err(); err != nil {
		result.Error = err
		return result
	}

	jobCtx := ctx
	if wp.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, wp.jobTimeout)
		defer cancel()
	}

	result.Value, result.Error = ij.job.Run(jobCtx)
	if errors.Is(result.Error, context.DeadlineExceeded) && ctx.Err() == nil {
		result.Error = fmt.Errorf("job %s timed out after %s: %w", ij.job.JobID, wp.jobTimeout, result.Error)
	}
	return result
}
