// Package memq is the in-process queue used when no Redis address is
// configured, and by tests. Same contract as redisq: nudges only, the job
// store stays the source of truth.
package memq

import (
	"context"
	"time"
)

type Queue struct {
	ch chan string
}

func New() *Queue {
	return &Queue{ch: make(chan string, 128)}
}

// Enqueue never blocks: when the buffer is full the nudge is dropped and
// the dispatcher's next tick picks the job up.
func (q *Queue) Enqueue(ctx context.Context, jobID string) error {
	select {
	case q.ch <- jobID:
	default:
	}
	return nil
}

func (q *Queue) Wait(ctx context.Context, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ch:
		return nil
	case <-t.C:
		return nil
	}
}
