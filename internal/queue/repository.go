package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clovelane/order-service/internal/order"
)

type Repository interface {
	Insert(ctx context.Context, job *Job) error
	// SelectDueBatch returns pending jobs due at or before now with
	// attempts under the ceiling, oldest-scheduled first.
	SelectDueBatch(ctx context.Context, now time.Time, limit int) ([]Job, error)
	// Claim flips a job from pending to processing and stamps the
	// attempt time. Returns false if another sweeper got there first.
	Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// MarkSent completes a processing job. Terminal.
	MarkSent(ctx context.Context, id uuid.UUID) error
	// Requeue returns a processing job to the pending pool with its new
	// attempt count and last error.
	Requeue(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
	// MarkFailed abandons a processing job after retry exhaustion. Terminal.
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
	// DeletePending removes all pending jobs for the order/kind pair.
	DeletePending(ctx context.Context, orderNumber string, kind order.NotificationKind) (int64, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Insert(ctx context.Context, job *Job) error {
	sql := `
		INSERT INTO notification_jobs (id, order_number, kind, recipient, status, attempts, scheduled_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, sql,
		job.ID, job.OrderNumber, string(job.Kind), job.Recipient, string(job.Status), job.Attempts, job.ScheduledAt, job.Metadata,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("queue: failed to insert job for order %s: %w", job.OrderNumber, err)
	}
	return nil
}

func (r *postgresRepository) SelectDueBatch(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	sql := `
		SELECT id, order_number, kind, recipient, status, attempts, scheduled_at, last_attempt_at, last_error, metadata, created_at, updated_at
		FROM notification_jobs
		WHERE status = $1 AND scheduled_at <= $2 AND attempts < $3
		ORDER BY scheduled_at ASC
		LIMIT $4`

	rows, err := r.db.Query(ctx, sql, string(JobPending), now, RetryCeiling, limit)
	if err != nil {
		return nil, fmt.Errorf("queue: failed to select due jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.OrderNumber, &j.Kind, &j.Recipient, &j.Status, &j.Attempts,
			&j.ScheduledAt, &j.LastAttemptAt, &j.LastError, &j.Metadata, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("queue: failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue: error iterating due jobs: %w", err)
	}
	return jobs, nil
}

func (r *postgresRepository) Claim(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	sql := `
		UPDATE notification_jobs
		SET status = $1, last_attempt_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4`

	cmdTag, err := r.db.Exec(ctx, sql, string(JobProcessing), at, id, string(JobPending))
	if err != nil {
		return false, fmt.Errorf("queue: failed to claim job %s: %w", id, err)
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *postgresRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	return r.conditionalUpdate(ctx, id, JobProcessing, JobSent, nil, nil)
}

func (r *postgresRepository) Requeue(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return r.conditionalUpdate(ctx, id, JobProcessing, JobPending, &attempts, &lastErr)
}

func (r *postgresRepository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error {
	return r.conditionalUpdate(ctx, id, JobProcessing, JobFailed, &attempts, &lastErr)
}

func (r *postgresRepository) conditionalUpdate(ctx context.Context, id uuid.UUID, expected, next JobStatus, attempts *int, lastErr *string) error {
	sql := `
		UPDATE notification_jobs
		SET status = $1,
			attempts = COALESCE($2, attempts),
			last_error = COALESCE($3, last_error),
			updated_at = now()
		WHERE id = $4 AND status = $5`

	cmdTag, err := r.db.Exec(ctx, sql, string(next), attempts, lastErr, id, string(expected))
	if err != nil {
		return fmt.Errorf("queue: failed to move job %s to %s: %w", id, next, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("queue: job %s was not in status %s", id, expected)
	}
	return nil
}

func (r *postgresRepository) DeletePending(ctx context.Context, orderNumber string, kind order.NotificationKind) (int64, error) {
	sql := `DELETE FROM notification_jobs WHERE order_number = $1 AND kind = $2 AND status = $3`

	cmdTag, err := r.db.Exec(ctx, sql, orderNumber, string(kind), string(JobPending))
	if err != nil {
		return 0, fmt.Errorf("queue: failed to delete pending jobs for order %s kind %s: %w", orderNumber, kind, err)
	}
	return cmdTag.RowsAffected(), nil
}
