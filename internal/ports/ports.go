package ports

import (
	"context"
	"io"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
)

// Scans accepts uploads and tracks scan jobs.
type Scans interface {
	Submit(ctx context.Context, req SubmitRequest) (jobID string, err error)
	Get(ctx context.Context, jobID string) (domain.ScanJob, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.ScanJob, error)
	Retry(ctx context.Context, jobID string) error
}

// SubmitRequest carries a validated upload into the scans service.
type SubmitRequest struct {
	OwnerID  string
	FileName string
	Size     int64
	Blob     io.Reader
}

// Renderer turns a settled bundle and score into report document bytes.
// Pure from the pipeline's perspective: no I/O side effects.
type Renderer interface {
	Render(bundle domain.ResultBundle, score int, meta domain.ReportMeta) ([]byte, error)
}
