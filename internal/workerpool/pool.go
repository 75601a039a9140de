// Package workerpool implements a fixed-size pool of goroutines consuming
// jobs from a shared bounded queue.
//
// Jobs are delivered first-available: whichever idle worker receives from
// the queue first runs the job. Shutdown is sentinel based: Stop clears the
// running flag so no new jobs are accepted, then enqueues one terminate
// message per worker behind every job already queued. Each worker finishes
// its current job, drains the jobs ahead of its sentinel and exits. No
// accepted job is ever abandoned.
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/marmos91/dittohttp/internal/logger"
)

// ErrPoolStopped is returned by Submit once Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// Job is a unit of work consumed exactly once by one worker.
type Job interface {
	Run()
}

// JobFunc adapts an ordinary function to the Job interface.
type JobFunc func()

// Run calls f.
func (f JobFunc) Run() { f() }

// message is what travels on the queue: either a job or the terminate
// sentinel.
type message struct {
	job       Job
	terminate bool
}

// Pool is a fixed set of workers sharing one queue.
type Pool struct {
	queue   chan message
	workers []*worker

	// running is cleared by Stop. Submit holds mu.RLock across its
	// check-then-send so no job can be enqueued behind a sentinel.
	running atomic.Bool
	mu      sync.RWMutex

	wg       sync.WaitGroup
	stopOnce sync.Once

	// busy counts workers currently running a job.
	busy atomic.Int32
}

type worker struct {
	id   int
	pool *Pool
}

// New starts size workers consuming from a queue of queueSize pending jobs.
//
// Panics if size < 1 or queueSize < 0 (programmer error).
func New(size, queueSize int) *Pool {
	if size < 1 {
		panic(fmt.Sprintf("workerpool: size must be >= 1, got %d", size))
	}
	if queueSize < 0 {
		panic(fmt.Sprintf("workerpool: queue size must be >= 0, got %d", queueSize))
	}

	p := &Pool{
		// Room for the sentinels on top of the job backlog so Stop never
		// blocks on a full queue once workers start draining.
		queue:   make(chan message, queueSize+size),
		workers: make([]*worker, size),
	}
	p.running.Store(true)

	for i := range p.workers {
		w := &worker{id: i, pool: p}
		p.workers[i] = w
		p.wg.Add(1)
		go w.loop()
	}

	logger.Debug("Worker pool started: workers=%d queue=%d", size, queueSize)
	return p
}

// Submit enqueues job for execution. It blocks while the queue is full.
//
// Returns ErrPoolStopped if Stop has been called; the job is then not run.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return errors.New("workerpool: nil job")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.running.Load() {
		return ErrPoolStopped
	}

	p.queue <- message{job: job}
	return nil
}

// Stop stops accepting jobs and waits for every worker to exit.
//
// Every job accepted by Submit before Stop runs to completion. If ctx ends
// first, Stop returns ctx.Err(); workers keep draining in the background.
// Stop is safe to call multiple times.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.running.Store(false)

		logger.Debug("Worker pool stopping: sending terminate to %d worker(s)", len(p.workers))
		go func() {
			// Wait out Submits that passed the running check so every
			// accepted job is queued ahead of the sentinels.
			p.mu.Lock()
			defer p.mu.Unlock()
			for range p.workers {
				p.queue <- message{terminate: true}
			}
		}()
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Debug("Worker pool stopped: all workers joined")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// QueueDepth returns the number of messages waiting in the queue.
func (p *Pool) QueueDepth() int {
	return len(p.queue)
}

// Busy returns the number of workers currently running a job.
func (p *Pool) Busy() int {
	return int(p.busy.Load())
}

// Running reports whether the pool still accepts jobs.
func (p *Pool) Running() bool {
	return p.running.Load()
}

func (w *worker) loop() {
	defer w.pool.wg.Done()

	for msg := range w.pool.queue {
		if msg.terminate {
			logger.Debug("Worker %d was told to terminate", w.id)
			return
		}
		w.run(msg.job)
	}
}

// run executes one job. A panicking job is logged and the worker survives.
func (w *worker) run(job Job) {
	w.pool.busy.Add(1)
	defer func() {
		w.pool.busy.Add(-1)
		if r := recover(); r != nil {
			logger.Error("Worker %d: panic in job: %v", w.id, r)
		}
	}()

	job.Run()
}
