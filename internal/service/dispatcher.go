package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/workshopd/internal/config"
	"github.com/atelierhq/workshopd/internal/domain"
	"github.com/atelierhq/workshopd/internal/gateway"
	"github.com/atelierhq/workshopd/internal/template"
)

type DispatcherConfig struct {
	MaxAttempts int
	BatchSize   int
	// SendDelay paces calls to the email gateway between jobs.
	SendDelay   time.Duration
	Location    string
	MeetingLink string
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		MaxAttempts: config.ReminderMaxAttempts,
		BatchSize:   config.DispatchBatchDefault,
		SendDelay:   config.DispatchSendDelay,
	}
}

// ReminderDispatcher drains due reminder jobs: claim, render, send, advance.
type ReminderDispatcher struct {
	reminders domain.ReminderRepository
	bookings  domain.BookingRepository
	emails    gateway.EmailGateway
	templates template.Provider
	cfg       DispatcherConfig
}

func NewReminderDispatcher(
	reminders domain.ReminderRepository,
	bookings domain.BookingRepository,
	emails gateway.EmailGateway,
	templates template.Provider,
	cfg DispatcherConfig,
) *ReminderDispatcher {
	return &ReminderDispatcher{
		reminders: reminders,
		bookings:  bookings,
		emails:    emails,
		templates: templates,
		cfg:       cfg,
	}
}

// ProcessPending claims one batch of due jobs and works through it, earliest
// first. Each job advances independently: a failing job is retried on a later
// run until the attempt ceiling makes it terminally failed, and never stops
// the rest of the batch. Returns the number of jobs processed.
func (d *ReminderDispatcher) ProcessPending(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	jobs, err := d.reminders.ClaimDue(ctx, now, d.cfg.MaxAttempts, d.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("claim due jobs: %w", err)
	}

	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			d.releaseClaims(ctx, jobs[i:])
			return i, err
		}

		d.dispatch(ctx, job)

		if d.cfg.SendDelay > 0 && i < len(jobs)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(d.cfg.SendDelay):
			}
		}
	}

	return len(jobs), nil
}

// releaseClaims returns never-attempted claims to scheduled so the next run
// picks them up with their attempt budget intact. It runs on a fresh context
// because the caller's is already cancelled.
func (d *ReminderDispatcher) releaseClaims(ctx context.Context, jobs []domain.ReminderJob) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	for _, job := range jobs {
		if err := d.reminders.Release(releaseCtx, job.ID); err != nil {
			slog.Error("release claimed job failed", "error", err, "job_id", job.ID)
		}
	}
}

func (d *ReminderDispatcher) dispatch(ctx context.Context, job domain.ReminderJob) {
	attemptAt := time.Now().UTC()

	subject, html, text, err := d.render(ctx, job)
	if err != nil {
		d.recordFailure(ctx, job, attemptAt, err)
		return
	}

	// Idempotency key ties the send to job and attempt so a redelivered
	// claim cannot mail twice.
	sendKey := fmt.Sprintf("reminder-%s-%d", job.ID, job.Attempts)
	result, err := d.emails.Send(ctx, job.RecipientEmail, subject, html, text, sendKey)
	if err == nil && !result.Success {
		err = fmt.Errorf("email gateway: %s", result.Error)
	}
	if err != nil {
		d.recordFailure(ctx, job, attemptAt, err)
		return
	}

	if err := d.reminders.MarkSent(ctx, job.ID, attemptAt); err != nil {
		slog.Error("mark reminder sent failed", "error", err, "job_id", job.ID)
		return
	}
	slog.Info("reminder sent",
		"job_id", job.ID,
		"booking_id", job.BookingID,
		"kind", job.Kind,
		"message_id", result.MessageID,
	)

	// The follow-up is the last touchpoint; the booking is done after it.
	if job.Kind == domain.ReminderKindFollowUp {
		if err := d.bookings.Complete(ctx, job.BookingID); err != nil && !errors.Is(err, domain.ErrInvalidState) {
			slog.Error("complete booking failed", "error", err, "booking_id", job.BookingID)
		}
	}
}

func (d *ReminderDispatcher) render(ctx context.Context, job domain.ReminderJob) (string, string, string, error) {
	b, err := d.bookings.GetByID(ctx, job.BookingID)
	if err != nil {
		return "", "", "", fmt.Errorf("load booking: %w", err)
	}

	data := template.Data{
		RecipientName: b.Contact.Name,
		EventName:     b.ProductName,
		EventDate:     b.EventDate,
		Location:      d.cfg.Location,
		MeetingLink:   d.cfg.MeetingLink,
	}
	return d.templates.Render(job.Kind, data)
}

func (d *ReminderDispatcher) recordFailure(ctx context.Context, job domain.ReminderJob, at time.Time, cause error) {
	// Attempts was read before the claim; this attempt makes it one more.
	if job.Attempts+1 >= d.cfg.MaxAttempts {
		if err := d.reminders.MarkFailed(ctx, job.ID, at, cause.Error()); err != nil {
			slog.Error("mark reminder failed failed", "error", err, "job_id", job.ID)
			return
		}
		slog.Error("reminder permanently failed",
			"job_id", job.ID,
			"booking_id", job.BookingID,
			"kind", job.Kind,
			"attempts", job.Attempts+1,
			"error", cause,
		)
		return
	}

	if err := d.reminders.RescheduleAfterFailure(ctx, job.ID, at, cause.Error()); err != nil {
		slog.Error("reschedule reminder failed", "error", err, "job_id", job.ID)
		return
	}
	slog.Warn("reminder send failed, will retry",
		"job_id", job.ID,
		"booking_id", job.BookingID,
		"kind", job.Kind,
		"attempts", job.Attempts+1,
		"error", cause,
	)
}

// ReleaseStaleClaims returns jobs stuck in the in-flight state (for example
// after a crash mid-batch) to scheduled.
func (d *ReminderDispatcher) ReleaseStaleClaims(ctx context.Context, age time.Duration) (int64, error) {
	return d.reminders.ReleaseStale(ctx, time.Now().UTC().Add(-age))
}
