package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adityaraj/bazario/pkg/queue"
)

var processed atomic.Int32

type mailJob struct {
	To string `json:"to"`
}

func (j *mailJob) Handle() error {
	processed.Add(1)
	return nil
}

type brokenJob struct{}

func (j *brokenJob) Handle() error {
	return errors.New("always fails")
}

func init() {
	queue.Register("*queue_test.mailJob", func() queue.Job { return &mailJob{} })
	queue.Register("*queue_test.brokenJob", func() queue.Job { return &brokenJob{} })
	queue.StartWorkers(context.Background(), 2)
}

func TestDispatchAndProcess(t *testing.T) {
	before := processed.Load()
	if err := queue.Dispatch(&mailJob{To: "x@example.com"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for processed.Load() == before {
		if time.Now().After(deadline) {
			t.Fatal("job was never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestExhaustedRetriesAreRecorded(t *testing.T) {
	queue.SetMaxRetry(1)
	defer queue.SetMaxRetry(3)

	if err := queue.Dispatch(&brokenJob{}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(queue.FailedJobs()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("failing job never landed in the failed list")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestDispatchConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			queue.Dispatch(&mailJob{To: "c@example.com"}) //nolint:errcheck
		}()
	}
	wg.Wait()
}
