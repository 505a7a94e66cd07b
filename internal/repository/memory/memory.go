// Package memory provides in-memory implementations of the domain
// repository interfaces. They back the service tests and small demos; the
// postgres implementations in internal/repository are the real store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelierhq/workshopd/internal/domain"
)

type BookingRepo struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*domain.Booking
}

func NewBookingRepo() *BookingRepo {
	return &BookingRepo{bookings: make(map[uuid.UUID]*domain.Booking)}
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	for i := range b.Attendees {
		b.Attendees[i].ID = int64(i + 1)
		b.Attendees[i].BookingID = b.ID
	}
	cp := cloneBooking(b)
	r.bookings[b.ID] = &cp
	return nil
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	cp := cloneBooking(b)
	return &cp, nil
}

func (r *BookingRepo) Confirm(ctx context.Context, id uuid.UUID, paymentID, confirmationCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if !b.Status.CanTransitionTo(domain.BookingStatusConfirmed) {
		return domain.ErrInvalidState
	}
	b.Status = domain.BookingStatusConfirmed
	b.PaymentStatus = domain.PaymentStatusCompleted
	b.PaymentID = paymentID
	b.ConfirmationCode = confirmationCode
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *BookingRepo) Cancel(ctx context.Context, id uuid.UUID, expected domain.BookingStatus, payment domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != expected || !b.Status.CanTransitionTo(domain.BookingStatusCancelled) {
		return domain.ErrInvalidState
	}
	b.Status = domain.BookingStatusCancelled
	b.PaymentStatus = payment
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *BookingRepo) Complete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if !b.Status.CanTransitionTo(domain.BookingStatusCompleted) {
		return domain.ErrInvalidState
	}
	b.Status = domain.BookingStatusCompleted
	b.UpdatedAt = time.Now().UTC()
	return nil
}

func cloneBooking(b *domain.Booking) domain.Booking {
	cp := *b
	cp.Attendees = append([]domain.Attendee(nil), b.Attendees...)
	return cp
}

type CouponRepo struct {
	mu          sync.Mutex
	coupons     map[string]*domain.Coupon
	redemptions map[int64]map[uuid.UUID]bool
	nextID      int64
}

func NewCouponRepo() *CouponRepo {
	return &CouponRepo{
		coupons:     make(map[string]*domain.Coupon),
		redemptions: make(map[int64]map[uuid.UUID]bool),
	}
}

func (r *CouponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	if _, exists := r.coupons[c.Code]; exists {
		return domain.ErrDuplicateCoupon
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now().UTC()
	cp := *c
	r.coupons[c.Code] = &cp
	return nil
}

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return nil, domain.ErrCouponNotFound
	}
	cp := *c
	cp.UsageCount = len(r.redemptions[c.ID])
	return &cp, nil
}

func (r *CouponRepo) Redeem(ctx context.Context, couponID int64, bookingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var coupon *domain.Coupon
	for _, c := range r.coupons {
		if c.ID == couponID {
			coupon = c
			break
		}
	}
	if coupon == nil {
		return domain.ErrCouponNotFound
	}

	used := r.redemptions[couponID]
	if used == nil {
		used = make(map[uuid.UUID]bool)
		r.redemptions[couponID] = used
	}
	// Duplicate beats exhausted so a repeat apply at the limit stays
	// idempotent.
	if used[bookingID] {
		return domain.ErrAlreadyRedeemed
	}
	if len(used) >= coupon.UsageLimit {
		return domain.ErrCouponExhausted
	}
	used[bookingID] = true
	return nil
}

type BlockoutRepo struct {
	mu        sync.Mutex
	blockouts map[int64]domain.Blockout
	nextID    int64
}

func NewBlockoutRepo() *BlockoutRepo {
	return &BlockoutRepo{blockouts: make(map[int64]domain.Blockout)}
}

func (r *BlockoutRepo) Create(ctx context.Context, b *domain.Blockout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	b.ID = r.nextID
	b.CreatedAt = time.Now().UTC()
	r.blockouts[b.ID] = *b
	return nil
}

func (r *BlockoutRepo) SetMirrorEventID(ctx context.Context, id int64, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.blockouts[id]
	if !ok {
		return domain.ErrBlockoutNotFound
	}
	b.MirrorEventID = eventID
	r.blockouts[id] = b
	return nil
}

func (r *BlockoutRepo) Covering(ctx context.Context, date time.Time) ([]domain.Blockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Blockout
	for _, b := range r.blockouts {
		if b.Contains(date) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out, nil
}

func (r *BlockoutRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blockouts[id]; !ok {
		return domain.ErrBlockoutNotFound
	}
	delete(r.blockouts, id)
	return nil
}

type ReminderRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]domain.ReminderJob
}

func NewReminderRepo() *ReminderRepo {
	return &ReminderRepo{jobs: make(map[uuid.UUID]domain.ReminderJob)}
}

func (r *ReminderRepo) CreateBatch(ctx context.Context, jobs []domain.ReminderJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	for _, j := range jobs {
		j.CreatedAt = now
		j.UpdatedAt = now
		r.jobs[j.ID] = j
	}
	return nil
}

func (r *ReminderRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.ReminderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ReminderJob
	for _, j := range r.jobs {
		if j.BookingID == bookingID {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ScheduledFor.Before(out[k].ScheduledFor) })
	return out, nil
}

func (r *ReminderRepo) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, j := range r.jobs {
		if j.BookingID == bookingID && j.Status == domain.ReminderStatusScheduled {
			j.Status = domain.ReminderStatusCancelled
			j.UpdatedAt = time.Now().UTC()
			r.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (r *ReminderRepo) ClaimDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]domain.ReminderJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var due []domain.ReminderJob
	for _, j := range r.jobs {
		if j.Status == domain.ReminderStatusScheduled && !j.ScheduledFor.After(now) && j.Attempts < maxAttempts {
			due = append(due, j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].ScheduledFor.Before(due[k].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	for i, j := range due {
		j.Status = domain.ReminderStatusSending
		j.UpdatedAt = time.Now().UTC()
		r.jobs[j.ID] = j
		due[i] = j
	}
	return due, nil
}

func (r *ReminderRepo) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.transition(id, func(j *domain.ReminderJob) {
		j.Status = domain.ReminderStatusSent
		j.LastAttemptAt = &at
		j.LastError = ""
	})
}

func (r *ReminderRepo) RescheduleAfterFailure(ctx context.Context, id uuid.UUID, at time.Time, cause string) error {
	return r.transition(id, func(j *domain.ReminderJob) {
		j.Status = domain.ReminderStatusScheduled
		j.Attempts++
		j.LastAttemptAt = &at
		j.LastError = cause
	})
}

func (r *ReminderRepo) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, cause string) error {
	return r.transition(id, func(j *domain.ReminderJob) {
		j.Status = domain.ReminderStatusFailed
		j.Attempts++
		j.LastAttemptAt = &at
		j.LastError = cause
	})
}

func (r *ReminderRepo) Release(ctx context.Context, id uuid.UUID) error {
	return r.transition(id, func(j *domain.ReminderJob) {
		j.Status = domain.ReminderStatusScheduled
	})
}

func (r *ReminderRepo) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, j := range r.jobs {
		if j.Status == domain.ReminderStatusSending && j.UpdatedAt.Before(cutoff) {
			j.Status = domain.ReminderStatusScheduled
			j.UpdatedAt = time.Now().UTC()
			r.jobs[id] = j
			n++
		}
	}
	return n, nil
}

func (r *ReminderRepo) transition(id uuid.UUID, apply func(*domain.ReminderJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.Status != domain.ReminderStatusSending {
		return domain.ErrReminderNotFound
	}
	apply(&j)
	j.UpdatedAt = time.Now().UTC()
	r.jobs[id] = j
	return nil
}

var (
	_ domain.BookingRepository  = (*BookingRepo)(nil)
	_ domain.CouponRepository   = (*CouponRepo)(nil)
	_ domain.BlockoutRepository = (*BlockoutRepo)(nil)
	_ domain.ReminderRepository = (*ReminderRepo)(nil)
)
