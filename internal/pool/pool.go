// Package pool provides a bounded pool of worker goroutines for offloading
// blocking calls, so request-serving goroutines suspend cheaply instead of
// tying up the compute device. The pool size is the only admission control
// on concurrent blocking work.
package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Pool runs submitted functions on a fixed set of worker goroutines.
type Pool struct {
	jobs    chan func()
	wg      sync.WaitGroup
	workers int
	inUse   atomic.Int64
	once    sync.Once
}

// New creates a pool with the given number of workers and starts them.
// Sizes below 1 are clamped to 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		jobs:    make(chan func()),
		workers: workers,
	}

	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.inUse.Add(1)
		job()
		p.inUse.Add(-1)
	}
}

// Close stops accepting work and waits for in-flight jobs to finish.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}

// Workers returns the pool size.
func (p *Pool) Workers() int { return p.workers }

// InUse returns the number of workers currently executing a job.
func (p *Pool) InUse() int { return int(p.inUse.Load()) }

type result[T any] struct {
	value T
	err   error
}

// Offload runs fn on a pool worker and suspends the caller until it
// completes. Admission (waiting for a free worker) honors ctx; once the job
// is dispatched it runs to completion — if the caller's context is canceled
// in the meantime the eventual result is discarded and ctx.Err is returned.
//
// A panic inside fn is recovered and propagated to the awaiting caller as
// an error; the worker and other in-flight jobs are unaffected.
func Offload[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T

	done := make(chan result[T], 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("panic in offloaded call: %v", r)}
			}
		}()
		v, err := fn()
		done <- result[T]{value: v, err: err}
	}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
