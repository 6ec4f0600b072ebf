// Package queue runs deferred work — mail sends and similar — off the
// request path. Jobs serialize to JSON, travel through a Driver (in-process
// by default, Redis when configured), and execute on a bounded worker pool.
//
//	type WelcomeEmailJob struct{ Email string }
//	func (j *WelcomeEmailJob) Handle() error { ... }
//
//	queue.Register("*jobs.WelcomeEmailJob", func() queue.Job { return &WelcomeEmailJob{} })
//	queue.Dispatch(&WelcomeEmailJob{Email: email})
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/adityaraj/bazario/pkg/logger"
	"github.com/adityaraj/bazario/pkg/metrics"
	"github.com/adityaraj/bazario/pkg/workerpool"
)

// Job is anything that can be queued. The dynamic type name (fmt %T) keys the
// factory registry, so register pointer types under their pointer name.
type Job interface {
	Handle() error
}

// FailedJob captures a job whose retries ran out.
type FailedJob struct {
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver moves serialized jobs between Dispatch and the consumer.
type Driver interface {
	Push(payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

type manager struct {
	mu        sync.RWMutex
	driver    Driver
	factories map[string]func() Job
	failed    []FailedJob
	maxRetry  int
}

var mgr = &manager{
	factories: map[string]func() Job{},
	maxRetry:  3,
	driver:    NewMemoryDriver(),
}

// SetDriver replaces the transport, e.g. with the Redis driver at boot.
func SetDriver(d Driver) {
	mgr.mu.Lock()
	mgr.driver = d
	mgr.mu.Unlock()
}

// SetMaxRetry bounds attempts per job.
func SetMaxRetry(n int) { mgr.maxRetry = n }

// Register maps a job type name to its factory. Call once per job type at
// boot; unregistered types found on the queue are logged and skipped.
func Register(name string, factory func() Job) {
	mgr.mu.Lock()
	mgr.factories[name] = factory
	mgr.mu.Unlock()
}

type wireJob struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch serializes job and pushes it to the driver.
func Dispatch(job Job) error {
	name := fmt.Sprintf("%T", job)

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshal job %s: %w", name, err)
	}
	wire, err := json.Marshal(wireJob{Type: name, Payload: payload})
	if err != nil {
		return fmt.Errorf("queue: marshal envelope: %w", err)
	}

	mgr.mu.RLock()
	d := mgr.driver
	mgr.mu.RUnlock()
	return d.Push(wire)
}

// DispatchAfter pushes job after delay. The memory driver delays in a
// goroutine; the Redis driver also offers PushDelayed with a sorted set.
func DispatchAfter(job Job, delay time.Duration) {
	go func() {
		time.Sleep(delay)
		if err := Dispatch(job); err != nil {
			logger.Error("queue: delayed dispatch failed", "error", err)
		}
	}()
}

// StartWorkers runs a consumer feeding a pool of n workers until ctx ends.
func StartWorkers(ctx context.Context, n int) {
	pool := workerpool.New(n)
	go func() {
		<-ctx.Done()
		pool.Shutdown()
	}()
	go mgr.consume(ctx, pool)
	logger.Info("queue: workers started", "count", n)
}

func (m *manager) consume(ctx context.Context, pool *workerpool.Pool) {
	for ctx.Err() == nil {
		m.mu.RLock()
		d := m.driver
		m.mu.RUnlock()

		raw, err := d.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if raw == nil {
			continue
		}

		payload := raw
		if err := pool.SubmitWait(func() { m.execute(payload) }); err != nil {
			// Pool closed during shutdown.
			return
		}
	}
}

func (m *manager) execute(raw []byte) {
	var wire wireJob
	if err := json.Unmarshal(raw, &wire); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.factories[wire.Type]
	m.mu.RUnlock()
	if !ok {
		logger.Warn("queue: unregistered job type", "type", wire.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(wire.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", wire.Type, "error", err)
		return
	}

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= m.maxRetry; attempt++ {
		if lastErr = job.Handle(); lastErr == nil {
			logger.Info("queue: job processed", "type", wire.Type)
			metrics.RecordQueueJob(wire.Type, "success", start)
			return
		}
		logger.Warn("queue: job failed, retrying",
			"type", wire.Type, "attempt", attempt, "error", lastErr)
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	m.persistFailed(job, wire.Type, lastErr, m.maxRetry)
	metrics.RecordQueueJob(wire.Type, "failed", start)
	logger.Error("queue: job exhausted retries", "type", wire.Type, "error", lastErr)
}

// FailedJobs snapshots the in-memory dead letter list.
func FailedJobs() []FailedJob {
	mgr.mu.RLock()
	defer mgr.mu.RUnlock()
	return append([]FailedJob(nil), mgr.failed...)
}
