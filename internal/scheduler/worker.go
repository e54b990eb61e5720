// SPDX-License-Identifier: MIT
package scheduler

import (
	"fmt"
	"sync"

	applog "specview/internal/log"
)

// WorkerBackend runs jobs one at a time on a dedicated goroutine. It holds
// at most one pending job: dispatching while a job is already waiting
// replaces it, and the displaced job completes with ErrReplaced. A running
// job is never interrupted.
type WorkerBackend struct {
	mailbox chan Job
	quit    chan struct{}

	mu       sync.Mutex // guards closed and the mailbox swap
	closed   bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Backend = (*WorkerBackend)(nil)

// NewWorkerBackend starts the worker goroutine.
func NewWorkerBackend() *WorkerBackend {
	w := &WorkerBackend{
		mailbox: make(chan Job, 1),
		quit:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	applog.Debugf("Worker: Started")
	return w
}

func (w *WorkerBackend) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.quit:
			return
		case job := <-w.mailbox:
			w.execute(job)
		}
	}
}

// execute runs one job, turning a panic into an ErrWorkerCrashed result.
// A job that finishes after Close is dropped.
func (w *WorkerBackend) execute(job Job) {
	res := Result{Generation: job.Request.Generation}

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Image = nil
				res.Err = fmt.Errorf("%w: %v", ErrWorkerCrashed, r)
			}
		}()
		res.Image, res.Err = job.Run(job.Request)
	}()

	select {
	case <-w.quit:
		applog.Debugf("Worker: Generation %d finished after close, dropped", res.Generation)
		return
	default:
	}
	job.Done(res)
}

// Dispatch queues job, displacing any job that has not started yet.
func (w *WorkerBackend) Dispatch(job Job) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrUnavailable
	}

	var displaced *Job
	select {
	case old := <-w.mailbox:
		displaced = &old
	default:
	}
	// Only this method sends, and it holds mu, so the slot is free.
	w.mailbox <- job
	w.mu.Unlock()

	if displaced != nil {
		applog.Debugf("Worker: Generation %d replaced by %d before start",
			displaced.Request.Generation, job.Request.Generation)
		displaced.Done(Result{Generation: displaced.Request.Generation, Err: ErrReplaced})
	}
	return nil
}

// Close stops the worker. It does not wait for a job that is already
// running; that job's result is discarded when it finishes.
func (w *WorkerBackend) Close() error {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.quit)
		w.mu.Unlock()
		applog.Debugf("Worker: Stopped")
	})
	return nil
}

// Wait blocks until the worker goroutine has exited. Tests use it to make
// sure an abandoned job has drained.
func (w *WorkerBackend) Wait() {
	w.wg.Wait()
}
