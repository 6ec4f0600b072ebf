package queue

import "context"

// MemoryDriver moves jobs through a buffered channel inside the process.
// It is the default driver for development and tests; jobs do not survive a
// restart.
type MemoryDriver struct {
	jobs chan []byte
}

// NewMemoryDriver buffers up to 1000 pending jobs; Push blocks beyond that.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{jobs: make(chan []byte, 1000)}
}

func (d *MemoryDriver) Push(payload []byte) error {
	d.jobs <- payload
	return nil
}

func (d *MemoryDriver) Pop(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case payload := <-d.jobs:
		return payload, nil
	}
}
