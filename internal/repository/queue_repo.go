package repository

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by Pop when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("queue is empty")

// QueueRepository is a FIFO of job ids waiting for a worker.
type QueueRepository interface {
	Push(ctx context.Context, jobID string) error
	// Pop blocks up to timeout for the next job id.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
	Size(ctx context.Context) (int64, error)
}
