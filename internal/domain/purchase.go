package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttendeeInput is one attendee on an incoming purchase request.
type AttendeeInput struct {
	Name               string `json:"name"`
	Email              string `json:"email"`
	DietaryNotes       string `json:"dietary_notes,omitempty"`
	AccessibilityNotes string `json:"accessibility_notes,omitempty"`
}

type PurchaseRequest struct {
	ProductID     string          `json:"product_id"`
	StartDate     time.Time       `json:"start_date"`
	Attendees     []AttendeeInput `json:"attendees"`
	Contact       Contact         `json:"contact"`
	PaymentMethod string          `json:"payment_method"`
	CouponCode    string          `json:"coupon_code,omitempty"`
}

type PurchaseResultStatus string

const (
	PurchaseCompleted PurchaseResultStatus = "completed"
	PurchaseFailed    PurchaseResultStatus = "failed"
)

// FailureReason values surfaced on failed purchases.
const (
	FailureDateUnavailable = "date_unavailable"
	FailurePaymentDeclined = "payment_declined"
	FailureUpstream        = "upstream_failure"
)

type PurchaseResult struct {
	Status           PurchaseResultStatus `json:"status"`
	BookingID        uuid.UUID            `json:"booking_id,omitempty"`
	PaymentID        string               `json:"payment_id,omitempty"`
	ConfirmationCode string               `json:"confirmation_code,omitempty"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	DiscountAmount   decimal.Decimal      `json:"discount_amount"`
	CouponApplied    bool                 `json:"coupon_applied"`
	CouponReason     CouponReason         `json:"coupon_reason,omitempty"`
	FailureReason    string               `json:"failure_reason,omitempty"`
}

// PurchaseStatus is a derived view over a booking and its payment record.
// It is recomputed on each query and never persisted.
type PurchaseStatus struct {
	BookingID        uuid.UUID       `json:"booking_id"`
	WorkshopID       string          `json:"workshop_id"`
	BookingStatus    BookingStatus   `json:"booking_status"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	RefundedAmount   decimal.Decimal `json:"refunded_amount"`
	ConfirmationCode string          `json:"confirmation_code,omitempty"`
	EventDate        time.Time       `json:"event_date"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}
