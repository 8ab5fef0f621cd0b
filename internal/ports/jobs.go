package ports

import (
	"context"
	"time"
)

// JobQueue wakes workers when a job is enqueued. The durable source of truth
// is the JobStore; queue delivery is at-least-once and a lost or duplicated
// nudge is harmless because claiming goes through JobStore.ClaimNext.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error

	// Wait blocks until a nudge arrives, the timeout elapses, or ctx is
	// done. A timeout return is not an error: the dispatcher re-polls.
	Wait(ctx context.Context, timeout time.Duration) error
}
