// Package workerpool bounds goroutine fan-out with backpressure.
//
// Bursty endpoints (order placement, image processing) hand work to a Pool
// instead of spawning goroutines directly. When every worker is busy and
// the queue is full, Submit fails fast with ErrPoolFull so the caller can
// shed load — answer 429, park the job in Redis, whatever fits.
//
//	pool := workerpool.New(50)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(resizeImage); errors.Is(err, workerpool.ErrPoolFull) {
//	    // shed load
//	}
package workerpool

import (
	"errors"
	"sync"
)

// ErrPoolFull is returned by Submit when the task queue is at capacity.
var ErrPoolFull = errors.New("workerpool: pool is full")

// ErrPoolClosed is returned by Submit and SubmitWait after Shutdown.
var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool runs submitted tasks on a fixed set of worker goroutines.
type Pool struct {
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
	stop  sync.Once
}

// New starts a Pool with size workers. A size below 1 is treated as 1.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		// Queue holds twice the worker count so short bursts don't
		// trip ErrPoolFull.
		tasks: make(chan func(), size*2),
		done:  make(chan struct{}),
	}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.drain()
	}
	return p
}

// Submit enqueues task without blocking. It returns ErrPoolFull when the
// queue is at capacity and ErrPoolClosed after Shutdown.
func (p *Pool) Submit(task func()) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}
	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrPoolFull
	}
}

// SubmitWait blocks until a queue slot frees up or the pool closes.
func (p *Pool) SubmitWait(task func()) error {
	select {
	case <-p.done:
		return ErrPoolClosed
	case p.tasks <- task:
		return nil
	}
}

// Shutdown stops intake, runs everything already queued, and waits for the
// workers to exit. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.stop.Do(func() {
		close(p.done)
		close(p.tasks)
		p.wg.Wait()
	})
}

func (p *Pool) drain() {
	defer p.wg.Done()
	for task := range p.tasks {
		run(task)
	}
}

// run isolates a panicking task so it cannot take a worker down with it.
func run(task func()) {
	defer func() { recover() }() //nolint:errcheck
	task()
}
