package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReminderKind string

const (
	ReminderKindEarly    ReminderKind = "pre_event_early"
	ReminderKindDayOf    ReminderKind = "pre_event_day_of"
	ReminderKindFinal    ReminderKind = "pre_event_final"
	ReminderKindFollowUp ReminderKind = "post_event_follow_up"
)

type ReminderStatus string

const (
	ReminderStatusScheduled ReminderStatus = "scheduled"
	// ReminderStatusSending marks a job claimed by a dispatcher run so a
	// concurrent run cannot send it twice.
	ReminderStatusSending  ReminderStatus = "sending"
	ReminderStatusSent     ReminderStatus = "sent"
	ReminderStatusFailed   ReminderStatus = "failed"
	ReminderStatusCancelled ReminderStatus = "cancelled"
)

type ReminderJob struct {
	ID             uuid.UUID
	BookingID      uuid.UUID
	WorkshopID     string
	RecipientEmail string
	EventDate      time.Time
	Kind           ReminderKind
	ScheduledFor   time.Time
	Status         ReminderStatus
	Attempts       int
	LastAttemptAt  *time.Time
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
