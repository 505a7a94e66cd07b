package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/domain"
)

type CouponService struct {
	coupons domain.CouponRepository
}

func NewCouponService(coupons domain.CouponRepository) *CouponService {
	return &CouponService{coupons: coupons}
}

// Validate checks a code against an order amount. Ineligibility comes back
// as a CouponValidation with a reason code, not an error; errors are
// reserved for storage failures.
func (s *CouponService) Validate(ctx context.Context, code string, amount decimal.Decimal) (*domain.CouponValidation, error) {
	c, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrCouponNotFound) {
			return &domain.CouponValidation{Valid: false, Reason: domain.CouponReasonNotFound, Code: code}, nil
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	if ok, reason := c.Eligibility(amount, time.Now().UTC()); !ok {
		return &domain.CouponValidation{Valid: false, Reason: reason, Code: c.Code}, nil
	}

	return &domain.CouponValidation{
		Valid:    true,
		Code:     c.Code,
		Discount: c.Discount(amount),
	}, nil
}

// Apply consumes one use of the coupon for the given booking. It is
// idempotent per booking id: a second apply for the same booking is a no-op
// and does not increment the usage counter again.
func (s *CouponService) Apply(ctx context.Context, code string, bookingID uuid.UUID) error {
	c, err := s.coupons.GetByCode(ctx, code)
	if err != nil {
		return fmt.Errorf("get coupon: %w", err)
	}

	if err := s.coupons.Redeem(ctx, c.ID, bookingID); err != nil {
		if errors.Is(err, domain.ErrAlreadyRedeemed) {
			return nil
		}
		return fmt.Errorf("redeem coupon: %w", err)
	}
	return nil
}

// Create registers a new coupon. Codes are stored upper-case so lookups are
// case-insensitive.
func (s *CouponService) Create(ctx context.Context, c *domain.Coupon) error {
	if c.Code == "" {
		return fmt.Errorf("%w: coupon code is required", domain.ErrValidation)
	}
	if c.DiscountType != domain.DiscountPercentage && c.DiscountType != domain.DiscountFixed {
		return fmt.Errorf("%w: unknown discount type %q", domain.ErrValidation, c.DiscountType)
	}
	if c.Value.IsNegative() {
		return fmt.Errorf("%w: discount value must not be negative", domain.ErrValidation)
	}
	if c.UsageLimit <= 0 {
		return fmt.Errorf("%w: usage limit must be positive", domain.ErrValidation)
	}
	return s.coupons.Create(ctx, c)
}
