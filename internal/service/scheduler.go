package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/workshopd/internal/config"
	"github.com/atelierhq/workshopd/internal/domain"
)

// SchedulerConfig carries the reminder offsets relative to the event start.
// Negative offsets fire before the event.
type SchedulerConfig struct {
	OffsetEarly    time.Duration
	OffsetDayOf    time.Duration
	OffsetFinal    time.Duration
	OffsetFollowUp time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		OffsetEarly:    config.ReminderOffsetEarly,
		OffsetDayOf:    config.ReminderOffsetDayOf,
		OffsetFinal:    config.ReminderOffsetFinal,
		OffsetFollowUp: config.ReminderOffsetFollowUp,
	}
}

// ReminderScheduler materializes the fixed reminder set for a confirmed
// booking.
type ReminderScheduler struct {
	bookings  domain.BookingRepository
	reminders domain.ReminderRepository
	cfg       SchedulerConfig
}

func NewReminderScheduler(bookings domain.BookingRepository, reminders domain.ReminderRepository, cfg SchedulerConfig) *ReminderScheduler {
	return &ReminderScheduler{bookings: bookings, reminders: reminders, cfg: cfg}
}

// ScheduleForBooking writes one job per reminder kind, all starting in
// scheduled state with zero attempts. Calling it again for a booking that
// already has jobs returns the existing set, so an orchestrator retry cannot
// produce a second one.
func (s *ReminderScheduler) ScheduleForBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.ReminderJob, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("load booking: %w", err)
	}

	existing, err := s.reminders.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list reminder jobs: %w", err)
	}
	if len(existing) > 0 {
		return existing, nil
	}

	offsets := []struct {
		kind   domain.ReminderKind
		offset time.Duration
	}{
		{domain.ReminderKindEarly, s.cfg.OffsetEarly},
		{domain.ReminderKindDayOf, s.cfg.OffsetDayOf},
		{domain.ReminderKindFinal, s.cfg.OffsetFinal},
		{domain.ReminderKindFollowUp, s.cfg.OffsetFollowUp},
	}

	jobs := make([]domain.ReminderJob, 0, len(offsets))
	for _, o := range offsets {
		jobs = append(jobs, domain.ReminderJob{
			ID:             uuid.New(),
			BookingID:      b.ID,
			WorkshopID:     b.WorkshopID,
			RecipientEmail: b.Contact.Email,
			EventDate:      b.EventDate,
			Kind:           o.kind,
			ScheduledFor:   b.EventDate.Add(o.offset),
			Status:         domain.ReminderStatusScheduled,
		})
	}

	if err := s.reminders.CreateBatch(ctx, jobs); err != nil {
		return nil, fmt.Errorf("create reminder jobs: %w", err)
	}
	return jobs, nil
}

// CancelForBooking flips the booking's scheduled jobs to cancelled. Jobs that
// were already sent or failed stay as they are.
func (s *ReminderScheduler) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	n, err := s.reminders.CancelForBooking(ctx, bookingID)
	if err != nil {
		return 0, fmt.Errorf("cancel reminder jobs: %w", err)
	}
	return n, nil
}
