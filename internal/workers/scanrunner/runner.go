// Package scanrunner drives scan jobs end to end: claim, fetch the package
// into a private temp dir, run every provider, score, render, persist the
// terminal state. One job occupies one worker slot for its whole lifetime.
package scanrunner

import (
	"bytes"
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/ports"
	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/scoring"
)

// BundleRunner produces the combined provider bundle for a local file.
type BundleRunner interface {
	RunAll(ctx context.Context, path string) (domain.ResultBundle, error)
}

// Processor executes one claimed job. Everything after the claim up to the
// terminal persistence happens here.
type Processor struct {
	Jobs     ports.JobStore
	Blobs    ports.BlobStore
	Runner   BundleRunner
	Renderer ports.Renderer
	WorkDir  string
}

// Process runs the full pipeline for a claimed job and persists the
// completed state. The caller persists the failed state when an error
// returns; the job's temp storage is reclaimed on every path before this
// function returns.
func (p *Processor) Process(ctx context.Context, job domain.ScanJob) (err error) {
	dir := filepath.Join(p.WorkDir, job.ID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, os.RemoveAll(dir))
	}()

	local := filepath.Join(dir, filepath.Base(job.FileName))
	if err := p.Blobs.GetFile(ctx, job.FileRef, local); err != nil {
		return err
	}

	bundle, err := p.Runner.RunAll(ctx, local)
	if err != nil {
		return err
	}

	score, _ := scoring.Score(bundle)
	doc, err := p.Renderer.Render(bundle, score, domain.ReportMeta{
		JobID:     job.ID,
		FileName:  job.FileName,
		OwnerID:   job.OwnerID,
		ScannedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	reportRef := "reports/" + job.ID + ".txt"
	if err := p.Blobs.Put(ctx, reportRef, bytes.NewReader(doc)); err != nil {
		return err
	}

	// The single atomic terminal write. A crash before this line leaves the
	// job in processing, never falsely completed.
	return p.Jobs.MarkCompleted(ctx, job.ID, bundle, score, reportRef)
}

// Run starts the dispatcher and worker goroutines. The dispatcher drains
// every pending job it can claim, then blocks on the queue nudge (or the
// poll interval) before trying again; workers own one job end to end.
func Run(ctx context.Context, jobs ports.JobStore, queue ports.JobQueue, processor *Processor, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan domain.ScanJob, concurrency)

	go func() {
		defer close(jobsCh)
		for {
			if ctx.Err() != nil {
				return
			}
			for {
				job, found, err := jobs.ClaimNext(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[scanrunner] job claim error: %v", err)
					break
				}
				if !found {
					break
				}
				select {
				case jobsCh <- job:
				case <-ctx.Done():
					return
				}
			}
			if err := queue.Wait(ctx, pollInterval); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("[scanrunner] queue wait error: %v", err)
			}
		}
	}()

	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				if err := processor.Process(ctx, job); err != nil {
					log.Printf("[scanrunner] worker %d: job %s failed: %v", idx, job.ID, err)
					if ferr := processor.Jobs.MarkFailed(ctx, job.ID, err.Error()); ferr != nil {
						log.Printf("[scanrunner] worker %d: mark failed err: %v", idx, ferr)
					}
					continue
				}
				log.Printf("[scanrunner] worker %d: job %s completed", idx, job.ID)
			}
		}(i)
	}
}
