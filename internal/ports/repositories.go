package ports

import (
	"context"
	"io"
	"time"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
)

// JobStore persists scan job records and drives their state transitions.
// MarkCompleted must write status, bundle, score and report reference
// atomically; a crash before it leaves the job claimable via ReleaseStale.
type JobStore interface {
	Create(ctx context.Context, job *domain.ScanJob) error
	Get(ctx context.Context, id string) (domain.ScanJob, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ScanJob, error)

	// ClaimNext picks the oldest pending job and moves it to processing,
	// guaranteeing at most one active consumer per job.
	ClaimNext(ctx context.Context) (job domain.ScanJob, found bool, err error)

	MarkCompleted(ctx context.Context, id string, bundle domain.ResultBundle, score int, reportRef string) error
	MarkFailed(ctx context.Context, id string, reason string) error

	// RetryFromFailed moves a failed job back to pending. Any other current
	// status yields domain.ErrRetryConflict.
	RetryFromFailed(ctx context.Context, id string) error

	// ReleaseStale fails jobs stuck in processing longer than cutoff so an
	// operator can retry them through the normal path.
	ReleaseStale(ctx context.Context, cutoff time.Duration) (released int, err error)
}

// BlobStore is the object store for uploaded packages and rendered reports.
// A blob just written is immediately readable.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// GetFile spools a blob to a local path for provider submission.
	GetFile(ctx context.Context, key string, dst string) error
	Delete(ctx context.Context, key string) error
}
