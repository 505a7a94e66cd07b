package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelierhq/workshopd/internal/domain"
)

// ReminderRepo is the postgres implementation of domain.ReminderRepository.
type ReminderRepo struct {
	db *pgxpool.Pool
}

func NewReminderRepo(db *pgxpool.Pool) *ReminderRepo {
	return &ReminderRepo{db: db}
}

func (r *ReminderRepo) CreateBatch(ctx context.Context, jobs []domain.ReminderJob) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, j := range jobs {
		_, err := tx.Exec(ctx, `
			INSERT INTO reminder_jobs (
				id, booking_id, workshop_id, recipient_email, event_date,
				kind, scheduled_for, status, attempts, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now(),now())`,
			j.ID, j.BookingID, j.WorkshopID, j.RecipientEmail, j.EventDate,
			string(j.Kind), j.ScheduledFor, string(j.Status), j.Attempts,
		)
		if err != nil {
			return fmt.Errorf("insert reminder job: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *ReminderRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.ReminderJob, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, workshop_id, recipient_email, event_date,
		       kind, scheduled_for, status, attempts, last_attempt_at, last_error,
		       created_at, updated_at
		FROM reminder_jobs
		WHERE booking_id = $1
		ORDER BY scheduled_for`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("query reminder jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *ReminderRepo) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'cancelled', updated_at = now()
		WHERE booking_id = $1 AND status = 'scheduled'`,
		bookingID)
	if err != nil {
		return 0, fmt.Errorf("cancel reminder jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClaimDue uses FOR UPDATE SKIP LOCKED so concurrent dispatcher runs divide
// the due set instead of claiming the same rows.
func (r *ReminderRepo) ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.ReminderJob, error) {
	rows, err := r.db.Query(ctx, `
		WITH due AS (
			SELECT id FROM reminder_jobs
			WHERE status = 'scheduled' AND scheduled_for <= $1 AND attempts < $2
			ORDER BY scheduled_for
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		UPDATE reminder_jobs j
		SET status = 'sending', updated_at = now()
		FROM due
		WHERE j.id = due.id
		RETURNING j.id, j.booking_id, j.workshop_id, j.recipient_email, j.event_date,
		          j.kind, j.scheduled_for, j.status, j.attempts, j.last_attempt_at,
		          j.last_error, j.created_at, j.updated_at`,
		now, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due jobs: %w", err)
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, err
	}
	// UPDATE ... FROM does not preserve the CTE ordering
	sortJobsBySchedule(jobs)
	return jobs, nil
}

func (r *ReminderRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'sent', last_attempt_at = $2, last_error = '', updated_at = now()
		WHERE id = $1 AND status = 'sending'`, id, at)
	if err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepo) RescheduleAfterFailure(ctx context.Context, id uuid.UUID, at time.Time, cause string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'scheduled', attempts = attempts + 1,
		    last_attempt_at = $2, last_error = $3, updated_at = now()
		WHERE id = $1 AND status = 'sending'`, id, at, cause)
	if err != nil {
		return fmt.Errorf("reschedule reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepo) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, cause string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'failed', attempts = attempts + 1,
		    last_attempt_at = $2, last_error = $3, updated_at = now()
		WHERE id = $1 AND status = 'sending'`, id, at, cause)
	if err != nil {
		return fmt.Errorf("mark reminder failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepo) Release(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'scheduled', updated_at = now()
		WHERE id = $1 AND status = 'sending'`, id)
	if err != nil {
		return fmt.Errorf("release reminder claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReminderNotFound
	}
	return nil
}

func (r *ReminderRepo) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE reminder_jobs
		SET status = 'scheduled', updated_at = now()
		WHERE status = 'sending' AND updated_at < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

type jobRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanJobs(rows jobRows) ([]domain.ReminderJob, error) {
	var out []domain.ReminderJob
	for rows.Next() {
		var (
			j            domain.ReminderJob
			kind, status string
		)
		if err := rows.Scan(
			&j.ID, &j.BookingID, &j.WorkshopID, &j.RecipientEmail, &j.EventDate,
			&kind, &j.ScheduledFor, &status, &j.Attempts, &j.LastAttemptAt,
			&j.LastError, &j.CreatedAt, &j.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reminder job: %w", err)
		}
		j.Kind = domain.ReminderKind(kind)
		j.Status = domain.ReminderStatus(status)
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminder jobs: %w", err)
	}
	return out, nil
}

func sortJobsBySchedule(jobs []domain.ReminderJob) {
	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].ScheduledFor.Before(jobs[k].ScheduledFor)
	})
}

var _ domain.ReminderRepository = (*ReminderRepo)(nil)
