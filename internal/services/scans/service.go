package scans

import (
	"context"
	"log"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/ports"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/providers/mobsf"
)

// Service accepts uploads, creates durable job records and enqueues them.
type Service struct {
	jobs      ports.JobStore
	blobs     ports.BlobStore
	queue     ports.JobQueue
	maxUpload int64
}

func New(jobs ports.JobStore, blobs ports.BlobStore, queue ports.JobQueue, maxUpload int64) *Service {
	return &Service{jobs: jobs, blobs: blobs, queue: queue, maxUpload: maxUpload}
}

// Submit validates the upload, stores the package, creates the pending job
// and nudges the workers. Validation failures surface immediately and no
// job is created.
func (s *Service) Submit(ctx context.Context, req ports.SubmitRequest) (string, error) {
	name := filepath.Base(req.FileName)
	if name == "" || name == "." {
		return "", domain.Validationf("missing file name")
	}
	if !mobsf.AllowedExtension(name) {
		return "", domain.Validationf("unsupported file type %q: expected a mobile application package", filepath.Ext(name))
	}
	if s.maxUpload > 0 && req.Size > s.maxUpload {
		return "", domain.Validationf("file size %d exceeds the %d byte upload limit", req.Size, s.maxUpload)
	}

	id := uuid.NewString()
	key := "uploads/" + id + strings.ToLower(filepath.Ext(name))
	if err := s.blobs.Put(ctx, key, req.Blob); err != nil {
		return "", err
	}

	job := &domain.ScanJob{
		ID:       id,
		OwnerID:  req.OwnerID,
		FileRef:  key,
		FileName: name,
		Status:   domain.StatusPending,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return "", err
	}

	// The nudge is best effort: the job is durable already and the
	// dispatcher's next tick will find it.
	if err := s.queue.Enqueue(ctx, id); err != nil {
		log.Printf("[scans] enqueue nudge for %s failed: %v", id, err)
	}
	return id, nil
}

func (s *Service) Get(ctx context.Context, jobID string) (domain.ScanJob, error) {
	return s.jobs.Get(ctx, jobID)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]domain.ScanJob, error) {
	return s.jobs.ListByOwner(ctx, ownerID)
}

// Retry re-enqueues a failed job. Only the failed state is retryable;
// anything else comes back as domain.ErrRetryConflict.
func (s *Service) Retry(ctx context.Context, jobID string) error {
	if err := s.jobs.RetryFromFailed(ctx, jobID); err != nil {
		return err
	}
	if err := s.queue.Enqueue(ctx, jobID); err != nil {
		log.Printf("[scans] enqueue nudge for retried %s failed: %v", jobID, err)
	}
	return nil
}
