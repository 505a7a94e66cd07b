package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/domain"
	"github.com/atelierhq/workshopd/internal/repository/memory"
)

type purchaseFixture struct {
	bookings  *memory.BookingRepo
	coupons   *memory.CouponRepo
	blockouts *memory.BlockoutRepo
	reminders *memory.ReminderRepo
	payments  *stubPayments
	catalog   *stubCatalog
	couponSvc *CouponService
	calendar  *CalendarService
	svc       *PurchaseService
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()
	f := &purchaseFixture{
		bookings:  memory.NewBookingRepo(),
		coupons:   memory.NewCouponRepo(),
		blockouts: memory.NewBlockoutRepo(),
		reminders: memory.NewReminderRepo(),
		payments:  newStubPayments(),
		catalog:   &stubCatalog{price: decimal.RequireFromString("60"), name: "Intro to Pottery"},
	}
	f.couponSvc = NewCouponService(f.coupons)
	f.calendar = NewCalendarService(f.blockouts, nil)
	sched := NewReminderScheduler(f.bookings, f.reminders, DefaultSchedulerConfig())
	f.svc = NewPurchaseService(f.bookings, f.couponSvc, f.calendar, sched, f.payments, f.catalog)
	return f
}

func validRequest() *domain.PurchaseRequest {
	return &domain.PurchaseRequest{
		ProductID: "pottery-intro",
		StartDate: time.Date(2026, 10, 1, 14, 0, 0, 0, time.UTC),
		Attendees: []domain.AttendeeInput{
			{Name: "Dana", Email: "dana@example.com"},
			{Name: "Sam", Email: "sam@example.com"},
		},
		Contact:       domain.Contact{Name: "Dana", Email: "dana@example.com"},
		PaymentMethod: "card",
	}
}

func TestProcessPurchaseSuccess(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)

	res, err := f.svc.ProcessPurchase(ctx, validRequest())
	if err != nil {
		t.Fatalf("ProcessPurchase() error = %v", err)
	}
	if res.Status != domain.PurchaseCompleted {
		t.Fatalf("Status = %q, want completed (failure %q)", res.Status, res.FailureReason)
	}
	if res.TotalAmount.StringFixed(2) != "120.00" {
		t.Errorf("TotalAmount = %s, want 120.00", res.TotalAmount.StringFixed(2))
	}
	if len(res.ConfirmationCode) != 8 {
		t.Errorf("ConfirmationCode = %q, want 8 characters", res.ConfirmationCode)
	}

	// Charge idempotency key is the booking id.
	if len(f.payments.charges) != 1 {
		t.Fatalf("charges = %d, want 1", len(f.payments.charges))
	}
	if f.payments.charges[0].key != res.BookingID.String() {
		t.Errorf("charge key = %q, want booking id %s", f.payments.charges[0].key, res.BookingID)
	}

	b, err := f.bookings.GetByID(ctx, res.BookingID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if b.Status != domain.BookingStatusConfirmed {
		t.Errorf("booking status = %q, want confirmed", b.Status)
	}
	if b.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("payment status = %q, want completed", b.PaymentStatus)
	}
	if b.WorkshopID != "pottery-intro-2026-10-01" {
		t.Errorf("workshop id = %q", b.WorkshopID)
	}

	jobs, _ := f.reminders.ListByBooking(ctx, res.BookingID)
	if len(jobs) != 4 {
		t.Errorf("reminder jobs = %d, want 4", len(jobs))
	}
}

func TestProcessPurchaseWithCoupon(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)
	seedCoupon(t, f.coupons, domain.Coupon{
		Code:         "ADMINTEST25",
		DiscountType: domain.DiscountFixed,
		Value:        decimal.RequireFromString("25"),
		UsageLimit:   10,
		Active:       true,
	})

	req := validRequest()
	req.CouponCode = "ADMINTEST25"
	res, err := f.svc.ProcessPurchase(ctx, req)
	if err != nil {
		t.Fatalf("ProcessPurchase() error = %v", err)
	}
	if res.Status != domain.PurchaseCompleted {
		t.Fatalf("Status = %q, want completed", res.Status)
	}
	if !res.CouponApplied {
		t.Error("CouponApplied = false, want true")
	}
	if res.DiscountAmount.StringFixed(2) != "25.00" {
		t.Errorf("DiscountAmount = %s, want 25.00", res.DiscountAmount.StringFixed(2))
	}
	if res.TotalAmount.StringFixed(2) != "95.00" {
		t.Errorf("TotalAmount = %s, want 95.00", res.TotalAmount.StringFixed(2))
	}
	if f.payments.charges[0].amount.StringFixed(2) != "95.00" {
		t.Errorf("charged %s, want 95.00", f.payments.charges[0].amount.StringFixed(2))
	}

	c, _ := f.coupons.GetByCode(ctx, "ADMINTEST25")
	if c.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", c.UsageCount)
	}
}

func TestProcessPurchaseInvalidCouponDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)

	req := validRequest()
	req.CouponCode = "NOPE"
	res, err := f.svc.ProcessPurchase(ctx, req)
	if err != nil {
		t.Fatalf("ProcessPurchase() error = %v", err)
	}
	if res.Status != domain.PurchaseCompleted {
		t.Fatalf("Status = %q, want completed", res.Status)
	}
	if res.CouponApplied {
		t.Error("CouponApplied = true, want false")
	}
	if res.CouponReason != domain.CouponReasonNotFound {
		t.Errorf("CouponReason = %q, want not_found", res.CouponReason)
	}
	if res.TotalAmount.StringFixed(2) != "120.00" {
		t.Errorf("TotalAmount = %s, want full price 120.00", res.TotalAmount.StringFixed(2))
	}
}

func TestProcessPurchaseDateUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)

	req := validRequest()
	if _, err := f.calendar.BlockDate(ctx, req.StartDate, "studio closed"); err != nil {
		t.Fatalf("BlockDate() error = %v", err)
	}

	res, err := f.svc.ProcessPurchase(ctx, req)
	if err != nil {
		t.Fatalf("ProcessPurchase() error = %v", err)
	}
	if res.Status != domain.PurchaseFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.FailureReason != domain.FailureDateUnavailable {
		t.Errorf("FailureReason = %q, want %q", res.FailureReason, domain.FailureDateUnavailable)
	}
	if len(f.payments.charges) != 0 {
		t.Errorf("charges = %d, want 0 before availability gate", len(f.payments.charges))
	}
}

func TestProcessPurchasePaymentDeclined(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)
	f.payments.chargeStatus = "declined"
	f.payments.chargeReason = "insufficient_funds"

	res, err := f.svc.ProcessPurchase(ctx, validRequest())
	if err != nil {
		t.Fatalf("ProcessPurchase() error = %v", err)
	}
	if res.Status != domain.PurchaseFailed {
		t.Fatalf("Status = %q, want failed", res.Status)
	}
	if res.FailureReason != "insufficient_funds" {
		t.Errorf("FailureReason = %q, want gateway reason", res.FailureReason)
	}

	b, err := f.bookings.GetByID(ctx, res.BookingID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if b.Status != domain.BookingStatusCancelled {
		t.Errorf("booking status = %q, want cancelled", b.Status)
	}
	if b.PaymentStatus != domain.PaymentStatusFailed {
		t.Errorf("payment status = %q, want failed", b.PaymentStatus)
	}

	jobs, _ := f.reminders.ListByBooking(ctx, res.BookingID)
	if len(jobs) != 0 {
		t.Errorf("reminder jobs = %d, want 0 for a failed purchase", len(jobs))
	}
}

func TestProcessPurchasePaymentTransportError(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)
	f.payments.chargeErr = errors.New("connection reset")

	res, err := f.svc.ProcessPurchase(ctx, validRequest())
	if err != nil {
		t.Fatalf("ProcessPurchase() error = %v", err)
	}
	if res.Status != domain.PurchaseFailed || res.FailureReason != domain.FailureUpstream {
		t.Fatalf("Status = %q reason = %q, want failed/upstream_failure", res.Status, res.FailureReason)
	}

	b, _ := f.bookings.GetByID(ctx, res.BookingID)
	if b.Status != domain.BookingStatusCancelled {
		t.Errorf("booking status = %q, want cancelled", b.Status)
	}
}

func TestProcessPurchaseCatalogDown(t *testing.T) {
	f := newPurchaseFixture(t)
	f.catalog.err = errors.New("catalog timeout")

	_, err := f.svc.ProcessPurchase(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrUpstream) {
		t.Errorf("ProcessPurchase() error = %v, want ErrUpstream", err)
	}
}

func TestProcessPurchaseValidation(t *testing.T) {
	f := newPurchaseFixture(t)

	tests := []struct {
		name   string
		mutate func(*domain.PurchaseRequest)
	}{
		{"missing product", func(r *domain.PurchaseRequest) { r.ProductID = "" }},
		{"missing date", func(r *domain.PurchaseRequest) { r.StartDate = time.Time{} }},
		{"no attendees", func(r *domain.PurchaseRequest) { r.Attendees = nil }},
		{"missing contact", func(r *domain.PurchaseRequest) { r.Contact.Email = "" }},
		{"missing payment method", func(r *domain.PurchaseRequest) { r.PaymentMethod = "" }},
		{"attendee without email", func(r *domain.PurchaseRequest) { r.Attendees[0].Email = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := f.svc.ProcessPurchase(context.Background(), req)
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ProcessPurchase() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCancelPurchase(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)

	res, err := f.svc.ProcessPurchase(ctx, validRequest())
	if err != nil || res.Status != domain.PurchaseCompleted {
		t.Fatalf("setup purchase failed: %v / %q", err, res.Status)
	}

	if err := f.svc.CancelPurchase(ctx, res.BookingID); err != nil {
		t.Fatalf("CancelPurchase() error = %v", err)
	}
	if len(f.payments.refunds) != 1 {
		t.Fatalf("refunds = %d, want 1", len(f.payments.refunds))
	}
	if f.payments.refunds[0].paymentID != res.PaymentID {
		t.Errorf("refunded payment %q, want %q", f.payments.refunds[0].paymentID, res.PaymentID)
	}

	b, _ := f.bookings.GetByID(ctx, res.BookingID)
	if b.Status != domain.BookingStatusCancelled || b.PaymentStatus != domain.PaymentStatusRefunded {
		t.Errorf("booking = %q/%q, want cancelled/refunded", b.Status, b.PaymentStatus)
	}

	jobs, _ := f.reminders.ListByBooking(ctx, res.BookingID)
	for _, j := range jobs {
		if j.Status != domain.ReminderStatusCancelled {
			t.Errorf("job %s status = %q, want cancelled", j.Kind, j.Status)
		}
	}

	// The second cancellation must not refund again.
	err = f.svc.CancelPurchase(ctx, res.BookingID)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second CancelPurchase() error = %v, want ErrInvalidState", err)
	}
	if len(f.payments.refunds) != 1 {
		t.Errorf("refunds = %d after double cancel, want 1", len(f.payments.refunds))
	}
}

func TestCancelPurchaseRefundFailureKeepsBooking(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)

	res, err := f.svc.ProcessPurchase(ctx, validRequest())
	if err != nil || res.Status != domain.PurchaseCompleted {
		t.Fatalf("setup purchase failed: %v / %q", err, res.Status)
	}

	f.payments.refundErr = errors.New("gateway timeout")
	err = f.svc.CancelPurchase(ctx, res.BookingID)
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("CancelPurchase() error = %v, want ErrUpstream", err)
	}

	b, _ := f.bookings.GetByID(ctx, res.BookingID)
	if b.Status != domain.BookingStatusConfirmed {
		t.Errorf("booking status = %q, want confirmed when refund fails", b.Status)
	}
}

func TestGetPurchaseStatus(t *testing.T) {
	ctx := context.Background()
	f := newPurchaseFixture(t)

	if _, err := f.svc.GetPurchaseStatus(ctx, uuid.New()); !errors.Is(err, domain.ErrBookingNotFound) {
		t.Errorf("unknown id error = %v, want ErrBookingNotFound", err)
	}

	res, err := f.svc.ProcessPurchase(ctx, validRequest())
	if err != nil || res.Status != domain.PurchaseCompleted {
		t.Fatalf("setup purchase failed: %v / %q", err, res.Status)
	}

	st, err := f.svc.GetPurchaseStatus(ctx, res.BookingID)
	if err != nil {
		t.Fatalf("GetPurchaseStatus() error = %v", err)
	}
	if st.PaidAmount.StringFixed(2) != "120.00" || !st.RefundedAmount.IsZero() {
		t.Errorf("paid = %s refunded = %s, want 120.00 and 0", st.PaidAmount, st.RefundedAmount)
	}

	if err := f.svc.CancelPurchase(ctx, res.BookingID); err != nil {
		t.Fatalf("CancelPurchase() error = %v", err)
	}
	st, err = f.svc.GetPurchaseStatus(ctx, res.BookingID)
	if err != nil {
		t.Fatalf("GetPurchaseStatus() after cancel error = %v", err)
	}
	if st.RefundedAmount.StringFixed(2) != "120.00" {
		t.Errorf("refunded = %s, want 120.00", st.RefundedAmount.StringFixed(2))
	}
	if st.BookingStatus != domain.BookingStatusCancelled {
		t.Errorf("booking status = %q, want cancelled", st.BookingStatus)
	}
}
