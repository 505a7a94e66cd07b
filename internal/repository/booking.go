package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/domain"
)

// BookingRepo is the postgres implementation of domain.BookingRepository.
type BookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepo(db *pgxpool.Pool) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, workshop_id, product_id, product_name, event_date,
			contact_name, contact_email, contact_phone,
			total_amount, discount_amount, coupon_code,
			status, payment_status, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())`,
		b.ID, b.WorkshopID, b.ProductID, b.ProductName, b.EventDate,
		b.Contact.Name, b.Contact.Email, b.Contact.Phone,
		b.TotalAmount.StringFixed(2), b.DiscountAmount.StringFixed(2), b.CouponCode,
		string(b.Status), string(b.PaymentStatus),
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	for i := range b.Attendees {
		a := &b.Attendees[i]
		a.BookingID = b.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO attendees (booking_id, name, email, dietary_notes, accessibility_notes)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id`,
			b.ID, a.Name, a.Email, a.DietaryNotes, a.AccessibilityNotes,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("insert attendee: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var (
		b                     domain.Booking
		status, payStatus     string
		totalStr, discountStr string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, workshop_id, product_id, product_name, event_date,
		       contact_name, contact_email, contact_phone,
		       total_amount::text, discount_amount::text, coupon_code,
		       status, payment_status, payment_id, confirmation_code,
		       created_at, updated_at
		FROM bookings WHERE id = $1`, id,
	).Scan(
		&b.ID, &b.WorkshopID, &b.ProductID, &b.ProductName, &b.EventDate,
		&b.Contact.Name, &b.Contact.Email, &b.Contact.Phone,
		&totalStr, &discountStr, &b.CouponCode,
		&status, &payStatus, &b.PaymentID, &b.ConfirmationCode,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	b.Status = domain.BookingStatus(status)
	b.PaymentStatus = domain.PaymentStatus(payStatus)
	if b.TotalAmount, err = decimal.NewFromString(totalStr); err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	if b.DiscountAmount, err = decimal.NewFromString(discountStr); err != nil {
		return nil, fmt.Errorf("parse discount amount: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, name, email, dietary_notes, accessibility_notes
		FROM attendees WHERE booking_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Attendee
		if err := rows.Scan(&a.ID, &a.BookingID, &a.Name, &a.Email, &a.DietaryNotes, &a.AccessibilityNotes); err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		b.Attendees = append(b.Attendees, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}

	return &b, nil
}

func (r *BookingRepo) Confirm(ctx context.Context, id uuid.UUID, paymentID, confirmationCode string) error {
	return r.conditionalUpdate(ctx, id, `
		UPDATE bookings
		SET status = 'confirmed', payment_status = 'completed',
		    payment_id = $2, confirmation_code = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, paymentID, confirmationCode)
}

func (r *BookingRepo) Cancel(ctx context.Context, id uuid.UUID, expected domain.BookingStatus, payment domain.PaymentStatus) error {
	return r.conditionalUpdate(ctx, id, `
		UPDATE bookings
		SET status = 'cancelled', payment_status = $3, updated_at = now()
		WHERE id = $1 AND status = $2`,
		id, string(expected), string(payment))
}

func (r *BookingRepo) Complete(ctx context.Context, id uuid.UUID) error {
	return r.conditionalUpdate(ctx, id, `
		UPDATE bookings
		SET status = 'completed', updated_at = now()
		WHERE id = $1 AND status = 'confirmed'`,
		id)
}

// conditionalUpdate distinguishes "no such booking" from "booking exists but
// is in a different status" so callers can surface the right error.
func (r *BookingRepo) conditionalUpdate(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check booking exists: %w", err)
	}
	if !exists {
		return domain.ErrBookingNotFound
	}
	return domain.ErrInvalidState
}

var _ domain.BookingRepository = (*BookingRepo)(nil)
