// Package worker implements the run-loop-owning goroutine and elastic pool
// described in §4.2/§4.3: a Worker pins exactly one native handle (a
// file-source engine, or a map+frontend pair) to one goroutine and only lets
// callers touch it by submitting jobs; a Pool grows and shrinks a set of
// Workers between a configured min and max.
//
// The shape is grounded on other_examples/ba59feab_nkovacs-go-mapnik's
// NewTileRendererChan/Listen: a single goroutine owns a non-thread-safe
// native handle and drains a channel of requests, generalized here to a
// typed submit/future contract with panic recovery.
package worker

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Job is a unit of work a Worker executes on its own goroutine with
// exclusive access to the handle. The job must not retain h after returning
// (§4.2).
type Job[H any] func(h H) (any, error)

type jobRequest[H any] struct {
	fn  Job[H]
	fut *Future
}

// Worker hosts exactly one handle of type H and a FIFO queue of jobs. Jobs
// submitted to the same Worker never run concurrently and complete in
// submission order.
type Worker[H any] struct {
	ID       uuid.UUID
	handle   H
	teardown func(H)
	jobs     chan jobRequest[H]
	closed   chan struct{}
}

// New creates a Worker around handle and starts its run-loop goroutine.
// teardown is called exactly once, after the job queue drains, to release
// the handle.
func New[H any](handle H, teardown func(H)) *Worker[H] {
	w := &Worker[H]{
		ID:       uuid.New(),
		handle:   handle,
		teardown: teardown,
		jobs:     make(chan jobRequest[H]),
		closed:   make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Worker[H]) loop() {
	defer close(w.closed)
	defer func() {
		if w.teardown != nil {
			w.teardown(w.handle)
		}
	}()
	for req := range w.jobs {
		val, err := w.runJob(req.fn)
		req.fut.complete(val, err)
	}
}

// runJob executes fn with panic recovery: a panicking job becomes an error
// delivered through the future, and the worker keeps servicing later jobs
// (§4.2 Failure).
func (w *Worker[H]) runJob(fn Job[H]) (val any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %s: job panicked: %v", w.ID, r)
		}
	}()
	return fn(w.handle)
}

// Submit enqueues fn and returns a Future that completes when fn returns or
// panics. Submit never blocks past the point the job is accepted by the
// worker's queue; it returns an already-failed Future if the worker has
// been closed.
func (w *Worker[H]) Submit(fn Job[H]) *Future {
	fut := newFuture()
	select {
	case <-w.closed:
		fut.complete(nil, errWorkerClosed)
		return fut
	default:
	}
	select {
	case w.jobs <- jobRequest[H]{fn: fn, fut: fut}:
	case <-w.closed:
		fut.complete(nil, errWorkerClosed)
	}
	return fut
}

// Close signals the worker to drain its queue and tear down its handle. It
// blocks until the run-loop goroutine has exited.
func (w *Worker[H]) Close() {
	select {
	case <-w.closed:
		return
	default:
	}
	close(w.jobs)
	<-w.closed
}

type workerError string

func (e workerError) Error() string { return string(e) }

const errWorkerClosed = workerError("worker: closed")

// Future represents the in-flight result of a submitted Job.
type Future struct {
	ch chan Result
}

// Result is the value or error a Job completed with.
type Result struct {
	Value any
	Err   error
}

func newFuture() *Future {
	return &Future{ch: make(chan Result, 1)}
}

func (f *Future) complete(val any, err error) {
	f.ch <- Result{Value: val, Err: err}
}

// Wait blocks until the job completes or ctx is done. Per §5, there is no
// request-level cancellation of an in-flight job once dispatched — Wait
// returning early on ctx.Done just stops the caller's continuation from
// running; the job keeps running to completion on the worker and its result
// is discarded.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case r := <-f.ch:
		return r.Value, r.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
