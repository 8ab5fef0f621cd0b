package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ajitesh-kuppa-sivakumar/trustforge-be/internal/domain"
)

const jobColumns = `id, owner_id, file_ref, file_name, status, bundle, score,
	report_ref, failure_reason, attempts, started_at, created_at, updated_at`

// Create inserts a new pending job record.
func (db *DB) Create(ctx context.Context, job *domain.ScanJob) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO scan_jobs (id, owner_id, file_ref, file_name, status)
		VALUES ($1, $2, $3, $4, 'pending')
	`, job.ID, job.OwnerID, job.FileRef, job.FileName)
	return err
}

// Get fetches one job by id.
func (db *DB) Get(ctx context.Context, id string) (domain.ScanJob, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM scan_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ScanJob{}, domain.ErrNotFound
	}
	return job, err
}

// ListByOwner returns the owner's jobs, newest first.
func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]domain.ScanJob, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+jobColumns+` FROM scan_jobs
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.ScanJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ClaimNext selects the oldest pending job using SKIP LOCKED and marks it
// processing. The locking transaction is the at-most-one-consumer guarantee.
func (db *DB) ClaimNext(ctx context.Context) (job domain.ScanJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var id string
	err = tx.QueryRow(ctx, `
		SELECT id FROM scan_jobs
		WHERE status = 'pending'
		ORDER BY created_at
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	row := tx.QueryRow(ctx, `
		UPDATE scan_jobs
		SET status='processing', started_at=now(), attempts=attempts+1, updated_at=now()
		WHERE id=$1
		RETURNING `+jobColumns+`
	`, id)
	job, err = scanJob(row)
	if err != nil {
		return job, false, err
	}
	return job, true, nil
}

// MarkCompleted writes the terminal success state. Status, bundle, score and
// report reference land in one statement so a crash can never leave a job
// completed without its results.
func (db *DB) MarkCompleted(ctx context.Context, id string, bundle domain.ResultBundle, score int, reportRef string) error {
	raw, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET status='completed', bundle=$2, score=$3, report_ref=$4,
		    failure_reason=NULL, updated_at=now()
		WHERE id=$1 AND status='processing'
	`, id, raw, score, reportRef)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not processing: %w", id, domain.ErrNotFound)
	}
	return nil
}

// MarkFailed writes the terminal failure state. No partial bundle is ever
// persisted.
func (db *DB) MarkFailed(ctx context.Context, id string, reason string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET status='failed', failure_reason=$2, updated_at=now()
		WHERE id=$1 AND status='processing'
	`, id, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is not processing: %w", id, domain.ErrNotFound)
	}
	return nil
}

// RetryFromFailed is a compare-and-set from failed back to pending. Any
// other current state is a client error.
func (db *DB) RetryFromFailed(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET status='pending', failure_reason=NULL, updated_at=now()
		WHERE id=$1 AND status='failed'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := db.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrRetryConflict
	}
	return nil
}

// ReleaseStale fails jobs stuck in processing past the cutoff (crashed
// worker). They become retryable through the normal path; nothing self-heals
// automatically.
func (db *DB) ReleaseStale(ctx context.Context, cutoff time.Duration) (int, error) {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE scan_jobs
		SET status='failed', failure_reason='released: worker did not finish in time', updated_at=now()
		WHERE status='processing' AND started_at < now() - $1::interval
	`, fmt.Sprintf("%d seconds", int(cutoff.Seconds())))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// rowScanner covers pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.ScanJob, error) {
	var job domain.ScanJob
	var status string
	var raw []byte
	err := row.Scan(&job.ID, &job.OwnerID, &job.FileRef, &job.FileName, &status,
		&raw, &job.Score, &job.ReportRef, &job.FailureReason, &job.Attempts,
		&job.StartedAt, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return job, err
	}
	job.Status, err = domain.ParseStatus(status)
	if err != nil {
		return job, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &job.Bundle); err != nil {
			return job, fmt.Errorf("decode bundle for job %s: %w", job.ID, err)
		}
	}
	return job, nil
}
