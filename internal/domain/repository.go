package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookingRepository owns booking rows and their attendees. Status changes go
// through conditional updates keyed on the expected current status so that a
// double-submitted command cannot apply twice.
type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// Confirm moves a pending booking to confirmed, records the payment id
	// and confirmation code and marks the payment completed.
	Confirm(ctx context.Context, id uuid.UUID, paymentID, confirmationCode string) error
	// Cancel moves a booking from the expected status to cancelled and sets
	// the final payment status. ErrInvalidState when the booking is not in
	// the expected status.
	Cancel(ctx context.Context, id uuid.UUID, expected BookingStatus, payment PaymentStatus) error
	Complete(ctx context.Context, id uuid.UUID) error
}

type CouponRepository interface {
	Create(ctx context.Context, c *Coupon) error
	// GetByCode looks up by normalized (upper-case) code with UsageCount
	// populated from the redemption table.
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	// Redeem records one redemption per (coupon, booking). A second redeem
	// for the same booking returns ErrAlreadyRedeemed and must not change
	// the usage count.
	Redeem(ctx context.Context, couponID int64, bookingID uuid.UUID) error
}

type BlockoutRepository interface {
	Create(ctx context.Context, b *Blockout) error
	SetMirrorEventID(ctx context.Context, id int64, eventID string) error
	// Covering returns all blockouts whose range contains the given date.
	Covering(ctx context.Context, date time.Time) ([]Blockout, error)
	Delete(ctx context.Context, id int64) error
}

type ReminderRepository interface {
	CreateBatch(ctx context.Context, jobs []ReminderJob) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]ReminderJob, error)
	// CancelForBooking flips only scheduled jobs to cancelled and returns
	// how many were affected. Sent and failed history is untouched.
	CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error)
	// ClaimDue atomically moves up to limit due jobs (scheduled_for <= now,
	// attempts < maxAttempts) from scheduled to sending, earliest first, and
	// returns them. Two concurrent dispatcher runs never claim the same job.
	ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]ReminderJob, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// RescheduleAfterFailure increments attempts, records the error and puts
	// the job back to scheduled for the next run.
	RescheduleAfterFailure(ctx context.Context, id uuid.UUID, at time.Time, cause string) error
	// MarkFailed increments attempts, records the error and makes the job
	// terminally failed.
	MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, cause string) error
	// Release puts a claimed job back to scheduled without consuming an
	// attempt. For claims the dispatcher never got to attempt.
	Release(ctx context.Context, id uuid.UUID) error
	// ReleaseStale returns jobs stuck in sending since before the cutoff to
	// scheduled without consuming an attempt.
	ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error)
}
