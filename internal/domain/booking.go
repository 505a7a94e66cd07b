package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// CanTransitionTo enforces pending -> confirmed -> {cancelled, completed}.
// A pending booking may also be cancelled directly (payment failure path).
// Cancelled and completed are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingStatusPending:
		return next == BookingStatusConfirmed || next == BookingStatusCancelled
	case BookingStatusConfirmed:
		return next == BookingStatusCancelled || next == BookingStatusCompleted
	default:
		return false
	}
}

type Attendee struct {
	ID                 int64
	BookingID          uuid.UUID
	Name               string
	Email              string
	DietaryNotes       string
	AccessibilityNotes string
}

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Booking struct {
	ID               uuid.UUID
	WorkshopID       string
	ProductID        string
	ProductName      string
	EventDate        time.Time
	Contact          Contact
	Attendees        []Attendee
	TotalAmount      decimal.Decimal
	DiscountAmount   decimal.Decimal
	CouponCode       string
	Status           BookingStatus
	PaymentStatus    PaymentStatus
	PaymentID        string
	ConfirmationCode string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
