package workerpool_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adityaraj/bazario/pkg/workerpool"
)

func TestRunsEverySubmittedTask(t *testing.T) {
	pool := workerpool.New(4)
	defer pool.Shutdown()

	const tasks = 100
	var ran atomic.Int64
	var wg sync.WaitGroup
	wg.Add(tasks)

	for i := 0; i < tasks; i++ {
		if err := pool.SubmitWait(func() {
			ran.Add(1)
			wg.Done()
		}); err != nil {
			t.Fatalf("SubmitWait: %v", err)
		}
	}
	wg.Wait()

	if got := ran.Load(); got != tasks {
		t.Errorf("ran %d of %d tasks", got, tasks)
	}
}

func TestSubmitShedsLoadWhenFull(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	release := make(chan struct{})
	busy := make(chan struct{})

	// Occupy the only worker, then fill both queue slots.
	_ = pool.SubmitWait(func() {
		close(busy)
		<-release
	})
	<-busy
	_ = pool.Submit(func() {})
	_ = pool.Submit(func() {})

	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolFull) {
		t.Errorf("Submit on a full pool = %v, want ErrPoolFull", err)
	}
	close(release)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()

	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Errorf("Submit after Shutdown = %v, want ErrPoolClosed", err)
	}
}

func TestWorkerSurvivesPanickingTask(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	_ = pool.SubmitWait(func() {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	done := make(chan struct{})
	_ = pool.SubmitWait(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task after a panic never ran")
	}
}

func TestShutdownDrainsInFlightWork(t *testing.T) {
	pool := workerpool.New(10)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		_ = pool.SubmitWait(func() {
			time.Sleep(time.Millisecond)
			wg.Done()
		})
	}
	wg.Wait()
	pool.Shutdown()
}
