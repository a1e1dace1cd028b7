// Package gate provides a one-shot readiness gate: a single-assignment cell
// with broadcast wakeup for an unbounded number of waiters.
//
// The gate coordinates a singleton resource that is loaded exactly once in
// the background while callers may already be waiting on it. Exactly one
// outcome — success with a handle, or failure with an error — is published
// over the process lifetime; every current and future waiter observes that
// same outcome.
package gate

import (
	"context"
	"sync/atomic"
)

// Gate is a one-shot readiness gate for a resource of type T.
// The zero value is not usable; create one with New.
type Gate[T any] struct {
	done      chan struct{}
	published atomic.Bool

	// handle and err are written once, before done is closed. Closing the
	// channel establishes the happens-before edge for all waiters.
	handle T
	err    error
}

// New creates a gate in the not-ready state.
func New[T any]() *Gate[T] {
	return &Gate[T]{done: make(chan struct{})}
}

// Succeed publishes the resource handle and wakes all waiters.
// Calling Succeed or Fail more than once is a programming error and panics.
func (g *Gate[T]) Succeed(handle T) {
	g.publish(handle, nil)
}

// Fail publishes a load failure and wakes all waiters. All current and
// future callers of Await receive the same error.
func (g *Gate[T]) Fail(err error) {
	var zero T
	g.publish(zero, err)
}

func (g *Gate[T]) publish(handle T, err error) {
	if !g.published.CompareAndSwap(false, true) {
		panic("gate: outcome already published")
	}
	g.handle = handle
	g.err = err
	close(g.done)
}

// Await suspends the calling goroutine until the gate is published, then
// returns the handle or the recorded load error. If the gate is already
// published it returns immediately. ctx cancellation aborts the wait only;
// it has no effect on the load itself.
func (g *Gate[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-g.done:
		return g.handle, g.err
	default:
	}

	select {
	case <-g.done:
		return g.handle, g.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Ready reports whether an outcome has been published.
func (g *Gate[T]) Ready() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Err returns the recorded load error, or nil if the gate is not yet
// published or the load succeeded. Intended for health reporting.
func (g *Gate[T]) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}
