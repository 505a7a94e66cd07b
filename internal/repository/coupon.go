package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/domain"
)

// CouponRepo is the postgres implementation of domain.CouponRepository.
// Usage counting is derived from coupon_redemptions; the unique
// (coupon_id, booking_id) constraint makes Redeem idempotent per booking.
type CouponRepo struct {
	db *pgxpool.Pool
}

func NewCouponRepo(db *pgxpool.Pool) *CouponRepo {
	return &CouponRepo{db: db}
}

func (r *CouponRepo) Create(ctx context.Context, c *domain.Coupon) error {
	c.Code = strings.ToUpper(strings.TrimSpace(c.Code))
	err := r.db.QueryRow(ctx, `
		INSERT INTO coupons (code, discount_type, value, min_amount, expires_at, usage_limit, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at`,
		c.Code, string(c.DiscountType), c.Value.StringFixed(2), c.MinAmount.StringFixed(2),
		c.ExpiresAt, c.UsageLimit, c.Active,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicateCoupon
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *CouponRepo) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var (
		c                domain.Coupon
		discountType     string
		valueStr, minStr string
	)
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.code, c.discount_type, c.value::text, c.min_amount::text,
		       c.expires_at, c.usage_limit, c.active, c.created_at,
		       (SELECT count(*) FROM coupon_redemptions cr WHERE cr.coupon_id = c.id)
		FROM coupons c WHERE c.code = $1`, code,
	).Scan(
		&c.ID, &c.Code, &discountType, &valueStr, &minStr,
		&c.ExpiresAt, &c.UsageLimit, &c.Active, &c.CreatedAt,
		&c.UsageCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCouponNotFound
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	c.DiscountType = domain.DiscountType(discountType)
	if c.Value, err = decimal.NewFromString(valueStr); err != nil {
		return nil, fmt.Errorf("parse coupon value: %w", err)
	}
	if c.MinAmount, err = decimal.NewFromString(minStr); err != nil {
		return nil, fmt.Errorf("parse coupon min amount: %w", err)
	}
	return &c, nil
}

// Redeem locks the coupon row so two concurrent redemptions cannot both
// slip past the usage limit.
func (r *CouponRepo) Redeem(ctx context.Context, couponID int64, bookingID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		WITH c AS (
			SELECT id, usage_limit FROM coupons WHERE id = $1 FOR UPDATE
		)
		INSERT INTO coupon_redemptions (coupon_id, booking_id)
		SELECT c.id, $2 FROM c
		WHERE (SELECT count(*) FROM coupon_redemptions r WHERE r.coupon_id = c.id) < c.usage_limit`,
		couponID, bookingID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyRedeemed
		}
		return fmt.Errorf("insert redemption: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing inserted: duplicate beats exhausted so a repeat apply at the
	// limit stays idempotent.
	var redeemed bool
	if err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM coupon_redemptions WHERE coupon_id = $1 AND booking_id = $2)`,
		couponID, bookingID).Scan(&redeemed); err != nil {
		return fmt.Errorf("check redemption exists: %w", err)
	}
	if redeemed {
		return domain.ErrAlreadyRedeemed
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM coupons WHERE id = $1)`, couponID).Scan(&exists); err != nil {
		return fmt.Errorf("check coupon exists: %w", err)
	}
	if !exists {
		return domain.ErrCouponNotFound
	}
	return domain.ErrCouponExhausted
}

var _ domain.CouponRepository = (*CouponRepo)(nil)
