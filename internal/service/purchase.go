package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/config"
	"github.com/atelierhq/workshopd/internal/domain"
	"github.com/atelierhq/workshopd/internal/gateway"
)

// PurchaseService orchestrates a purchase end to end: availability check,
// pricing, coupon application, booking creation, payment capture and
// reminder scheduling. Every path ends in a consistent terminal state:
// either confirmed with reminder jobs scheduled, or cancelled with none.
type PurchaseService struct {
	bookings  domain.BookingRepository
	coupons   *CouponService
	calendar  *CalendarService
	scheduler *ReminderScheduler
	payments  gateway.PaymentGateway
	catalog   gateway.ProductCatalog
}

func NewPurchaseService(
	bookings domain.BookingRepository,
	coupons *CouponService,
	calendar *CalendarService,
	scheduler *ReminderScheduler,
	payments gateway.PaymentGateway,
	catalog gateway.ProductCatalog,
) *PurchaseService {
	return &PurchaseService{
		bookings:  bookings,
		coupons:   coupons,
		calendar:  calendar,
		scheduler: scheduler,
		payments:  payments,
		catalog:   catalog,
	}
}

func (s *PurchaseService) ProcessPurchase(ctx context.Context, req *domain.PurchaseRequest) (*domain.PurchaseResult, error) {
	if err := validatePurchaseRequest(req); err != nil {
		return nil, err
	}

	available, err := s.calendar.IsDateAvailable(ctx, req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("availability check: %w", err)
	}
	if !available {
		return &domain.PurchaseResult{
			Status:        domain.PurchaseFailed,
			FailureReason: domain.FailureDateUnavailable,
		}, nil
	}

	price, err := s.catalog.ProductPrice(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: product price lookup: %v", domain.ErrUpstream, err)
	}
	productName, err := s.catalog.ProductName(ctx, req.ProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: product lookup: %v", domain.ErrUpstream, err)
	}

	base := price.Mul(decimal.NewFromInt(int64(len(req.Attendees))))
	total := base
	discount := decimal.Zero

	// Invalid coupons do not fail the purchase; the result reports whether
	// the discount was applied and why not.
	couponApplied := false
	var couponReason domain.CouponReason
	if req.CouponCode != "" {
		validation, err := s.coupons.Validate(ctx, req.CouponCode, base)
		if err != nil {
			return nil, fmt.Errorf("validate coupon: %w", err)
		}
		if validation.Valid {
			discount = validation.Discount
			total = base.Sub(discount)
			couponApplied = true
		} else {
			couponReason = validation.Reason
		}
	}

	booking := &domain.Booking{
		ID:             uuid.New(),
		WorkshopID:     workshopID(req.ProductID, req.StartDate),
		ProductID:      req.ProductID,
		ProductName:    productName,
		EventDate:      req.StartDate,
		Contact:        req.Contact,
		TotalAmount:    total,
		DiscountAmount: discount,
		Status:         domain.BookingStatusPending,
		PaymentStatus:  domain.PaymentStatusPending,
	}
	if couponApplied {
		booking.CouponCode = req.CouponCode
	}
	for _, a := range req.Attendees {
		booking.Attendees = append(booking.Attendees, domain.Attendee{
			Name:               a.Name,
			Email:              a.Email,
			DietaryNotes:       a.DietaryNotes,
			AccessibilityNotes: a.AccessibilityNotes,
		})
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	// Generated before the charge so no failure between capture and
	// confirmation is possible on this step.
	code, err := generateConfirmationCode()
	if err != nil {
		s.cancelPending(ctx, booking.ID)
		return nil, fmt.Errorf("generate confirmation code: %w", err)
	}

	// The booking id doubles as the charge idempotency key: a retried
	// purchase call cannot double-charge.
	charge, err := s.payments.Charge(ctx, total, booking.ID.String(), req.PaymentMethod)
	if err != nil {
		s.cancelPending(ctx, booking.ID)
		return &domain.PurchaseResult{
			Status:         domain.PurchaseFailed,
			BookingID:      booking.ID,
			TotalAmount:    total,
			DiscountAmount: discount,
			CouponReason:   couponReason,
			FailureReason:  domain.FailureUpstream,
		}, nil
	}
	if charge.Status != gateway.ChargeStatusSucceeded {
		s.cancelPending(ctx, booking.ID)
		reason := charge.Reason
		if reason == "" {
			reason = domain.FailurePaymentDeclined
		}
		return &domain.PurchaseResult{
			Status:         domain.PurchaseFailed,
			BookingID:      booking.ID,
			TotalAmount:    total,
			DiscountAmount: discount,
			CouponReason:   couponReason,
			FailureReason:  reason,
		}, nil
	}

	if err := s.bookings.Confirm(ctx, booking.ID, charge.ID, code); err != nil {
		s.compensateCaptured(ctx, booking.ID, charge.ID, total)
		return nil, fmt.Errorf("confirm booking: %w", err)
	}

	if couponApplied {
		// Keyed by booking id, so an orchestrator retry cannot increment
		// the usage counter twice. A miss here is operator-visible but does
		// not undo a captured payment.
		if err := s.coupons.Apply(ctx, req.CouponCode, booking.ID); err != nil {
			slog.Error("coupon apply failed after capture", "error", err, "booking_id", booking.ID, "code", req.CouponCode)
		}
	}

	if _, err := s.scheduler.ScheduleForBooking(ctx, booking.ID); err != nil {
		// Without the reminder set the booking would sit half-applied, so
		// roll the whole purchase back.
		s.compensateConfirmed(ctx, booking.ID, charge.ID, total)
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}

	return &domain.PurchaseResult{
		Status:           domain.PurchaseCompleted,
		BookingID:        booking.ID,
		PaymentID:        charge.ID,
		ConfirmationCode: code,
		TotalAmount:      total,
		DiscountAmount:   discount,
		CouponApplied:    couponApplied,
		CouponReason:     couponReason,
	}, nil
}

// GetPurchaseStatus derives the status view from the booking row; it is
// never persisted.
func (s *PurchaseService) GetPurchaseStatus(ctx context.Context, bookingID uuid.UUID) (*domain.PurchaseStatus, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	paid := decimal.Zero
	refunded := decimal.Zero
	switch b.PaymentStatus {
	case domain.PaymentStatusCompleted:
		paid = b.TotalAmount
	case domain.PaymentStatusRefunded:
		paid = b.TotalAmount
		refunded = b.TotalAmount
	}

	return &domain.PurchaseStatus{
		BookingID:        b.ID,
		WorkshopID:       b.WorkshopID,
		BookingStatus:    b.Status,
		PaymentStatus:    b.PaymentStatus,
		TotalAmount:      b.TotalAmount,
		PaidAmount:       paid,
		RefundedAmount:   refunded,
		ConfirmationCode: b.ConfirmationCode,
		EventDate:        b.EventDate,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}, nil
}

// CancelPurchase refunds and cancels a confirmed purchase. The refund call
// is synchronous: state is only finalized after the gateway accepts it.
func (s *PurchaseService) CancelPurchase(ctx context.Context, bookingID uuid.UUID) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != domain.BookingStatusConfirmed {
		return fmt.Errorf("%w: booking is %s", domain.ErrInvalidState, b.Status)
	}

	if _, err := s.payments.Refund(ctx, b.PaymentID, b.TotalAmount); err != nil {
		return fmt.Errorf("%w: refund: %v", domain.ErrUpstream, err)
	}

	if err := s.bookings.Cancel(ctx, bookingID, domain.BookingStatusConfirmed, domain.PaymentStatusRefunded); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}

	if _, err := s.scheduler.CancelForBooking(ctx, bookingID); err != nil {
		slog.Error("cancel reminder jobs failed", "error", err, "booking_id", bookingID)
	}
	return nil
}

func (s *PurchaseService) cancelPending(ctx context.Context, bookingID uuid.UUID) {
	if err := s.bookings.Cancel(ctx, bookingID, domain.BookingStatusPending, domain.PaymentStatusFailed); err != nil {
		slog.Error("cancel pending booking failed", "error", err, "booking_id", bookingID)
	}
}

func (s *PurchaseService) compensateCaptured(ctx context.Context, bookingID uuid.UUID, paymentID string, amount decimal.Decimal) {
	if _, err := s.payments.Refund(ctx, paymentID, amount); err != nil {
		slog.Error("compensating refund failed", "error", err, "booking_id", bookingID, "payment_id", paymentID)
	}
	s.cancelPending(ctx, bookingID)
}

func (s *PurchaseService) compensateConfirmed(ctx context.Context, bookingID uuid.UUID, paymentID string, amount decimal.Decimal) {
	if _, err := s.payments.Refund(ctx, paymentID, amount); err != nil {
		slog.Error("compensating refund failed", "error", err, "booking_id", bookingID, "payment_id", paymentID)
	}
	if err := s.bookings.Cancel(ctx, bookingID, domain.BookingStatusConfirmed, domain.PaymentStatusRefunded); err != nil {
		slog.Error("compensating cancel failed", "error", err, "booking_id", bookingID)
	}
}

func validatePurchaseRequest(req *domain.PurchaseRequest) error {
	switch {
	case req.ProductID == "":
		return fmt.Errorf("%w: product id is required", domain.ErrValidation)
	case req.StartDate.IsZero():
		return fmt.Errorf("%w: start date is required", domain.ErrValidation)
	case len(req.Attendees) == 0:
		return fmt.Errorf("%w: at least one attendee is required", domain.ErrValidation)
	case req.Contact.Name == "" || req.Contact.Email == "":
		return fmt.Errorf("%w: point of contact name and email are required", domain.ErrValidation)
	case req.PaymentMethod == "":
		return fmt.Errorf("%w: payment method is required", domain.ErrValidation)
	}
	for i, a := range req.Attendees {
		if a.Name == "" || a.Email == "" {
			return fmt.Errorf("%w: attendee %d needs name and email", domain.ErrValidation, i+1)
		}
	}
	return nil
}

func workshopID(productID string, start time.Time) string {
	return fmt.Sprintf("%s-%s", productID, start.Format("2006-01-02"))
}

const confirmationCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func generateConfirmationCode() (string, error) {
	code := make([]byte, config.ConfirmationCodeLen)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(confirmationCharset))))
		if err != nil {
			return "", err
		}
		code[i] = confirmationCharset[n.Int64()]
	}
	return string(code), nil
}
