// Package queue holds the job queue shared by submission handlers and the
// worker. Pushes never block on job completion; Pop blocks the single
// consumer until a job is available.
package queue

import (
	"context"
	"errors"
	"sync"

	"pagemotion/internal/jobs"
)

// ErrEmpty is returned by Pop when a bounded wait ends without a job.
var ErrEmpty = errors.New("queue: empty")

// Queue is an unbounded FIFO of jobs.
type Queue interface {
	Push(ctx context.Context, job jobs.Job) error
	Pop(ctx context.Context) (jobs.Job, error)
	Len(ctx context.Context) (int64, error)
}

// MemoryQueue keeps jobs in process.
type MemoryQueue struct {
	mu     sync.Mutex
	items  []jobs.Job
	notify chan struct{}
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{notify: make(chan struct{}, 1)}
}

// Push appends job. It never blocks on the consumer.
func (q *MemoryQueue) Push(_ context.Context, job jobs.Job) error {
	q.mu.Lock()
	q.items = append(q.items, job)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pop removes the oldest job, waiting until one is pushed or ctx ends.
func (q *MemoryQueue) Pop(ctx context.Context) (jobs.Job, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			job := q.items[0]
			q.items[0] = jobs.Job{}
			q.items = q.items[1:]
			remaining := len(q.items)
			q.mu.Unlock()

			// Pass the wake-up on so a later Pop does not sleep with work queued.
			if remaining > 0 {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return job, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return jobs.Job{}, ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}
