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

func seedCoupon(t *testing.T, repo *memory.CouponRepo, c domain.Coupon) domain.Coupon {
	t.Helper()
	if err := repo.Create(context.Background(), &c); err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return c
}

func TestCouponServiceValidate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCouponRepo()
	svc := NewCouponService(repo)

	expired := time.Now().UTC().Add(-time.Hour)
	seedCoupon(t, repo, domain.Coupon{
		Code:         "BETATEST100",
		DiscountType: domain.DiscountPercentage,
		Value:        decimal.RequireFromString("100"),
		UsageLimit:   50,
		Active:       true,
	})
	seedCoupon(t, repo, domain.Coupon{
		Code:         "EXPIRED10",
		DiscountType: domain.DiscountPercentage,
		Value:        decimal.RequireFromString("10"),
		UsageLimit:   50,
		Active:       true,
		ExpiresAt:    &expired,
	})
	seedCoupon(t, repo, domain.Coupon{
		Code:         "BIGSPENDER",
		DiscountType: domain.DiscountFixed,
		Value:        decimal.RequireFromString("25"),
		MinAmount:    decimal.RequireFromString("200"),
		UsageLimit:   50,
		Active:       true,
	})

	tests := []struct {
		name         string
		code         string
		amount       string
		wantValid    bool
		wantReason   domain.CouponReason
		wantDiscount string
	}{
		{"unknown code", "NOPE", "100", false, domain.CouponReasonNotFound, ""},
		{"expired", "EXPIRED10", "100", false, domain.CouponReasonExpired, ""},
		{"below minimum", "BIGSPENDER", "100", false, domain.CouponReasonBelowMinimum, ""},
		{"full discount", "BETATEST100", "199", true, "", "199.00"},
		{"case insensitive", "betatest100", "100", true, "", "100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := svc.Validate(ctx, tt.code, decimal.RequireFromString(tt.amount))
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if v.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v (reason %q)", v.Valid, tt.wantValid, v.Reason)
			}
			if v.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.wantReason)
			}
			if tt.wantDiscount != "" && v.Discount.StringFixed(2) != tt.wantDiscount {
				t.Errorf("Discount = %s, want %s", v.Discount.StringFixed(2), tt.wantDiscount)
			}
		})
	}
}

func TestCouponServiceApplyIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCouponRepo()
	svc := NewCouponService(repo)

	seedCoupon(t, repo, domain.Coupon{
		Code:         "ADMINTEST25",
		DiscountType: domain.DiscountFixed,
		Value:        decimal.RequireFromString("25"),
		UsageLimit:   10,
		Active:       true,
	})

	bookingID := uuid.New()
	if err := svc.Apply(ctx, "ADMINTEST25", bookingID); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}
	if err := svc.Apply(ctx, "ADMINTEST25", bookingID); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}

	c, err := repo.GetByCode(ctx, "ADMINTEST25")
	if err != nil {
		t.Fatalf("GetByCode() error = %v", err)
	}
	if c.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1 after duplicate apply", c.UsageCount)
	}

	// A different booking consumes another use.
	if err := svc.Apply(ctx, "ADMINTEST25", uuid.New()); err != nil {
		t.Fatalf("Apply() for second booking error = %v", err)
	}
	c, _ = repo.GetByCode(ctx, "ADMINTEST25")
	if c.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", c.UsageCount)
	}
}

func TestCouponServiceApplyHonorsUsageLimit(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCouponRepo()
	svc := NewCouponService(repo)

	seedCoupon(t, repo, domain.Coupon{
		Code:         "ONESHOT",
		DiscountType: domain.DiscountFixed,
		Value:        decimal.RequireFromString("10"),
		UsageLimit:   1,
		Active:       true,
	})

	first := uuid.New()
	if err := svc.Apply(ctx, "ONESHOT", first); err != nil {
		t.Fatalf("first Apply() error = %v", err)
	}

	// The limit is enforced at redemption time, not just at validation.
	err := svc.Apply(ctx, "ONESHOT", uuid.New())
	if !errors.Is(err, domain.ErrCouponExhausted) {
		t.Errorf("Apply() past limit error = %v, want ErrCouponExhausted", err)
	}

	// Re-applying the booking that holds the redemption stays a no-op.
	if err := svc.Apply(ctx, "ONESHOT", first); err != nil {
		t.Errorf("repeat Apply() at limit error = %v, want nil", err)
	}

	c, _ := repo.GetByCode(ctx, "ONESHOT")
	if c.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", c.UsageCount)
	}
}

func TestCouponServiceCreate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCouponRepo()
	svc := NewCouponService(repo)

	valid := domain.Coupon{
		Code:         "SPRING20",
		DiscountType: domain.DiscountPercentage,
		Value:        decimal.RequireFromString("20"),
		UsageLimit:   100,
		Active:       true,
	}
	if err := svc.Create(ctx, &valid); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	dup := valid
	dup.ID = 0
	if err := svc.Create(ctx, &dup); !errors.Is(err, domain.ErrDuplicateCoupon) {
		t.Errorf("duplicate Create() error = %v, want ErrDuplicateCoupon", err)
	}

	tests := []struct {
		name   string
		coupon domain.Coupon
	}{
		{"missing code", domain.Coupon{DiscountType: domain.DiscountFixed, Value: decimal.NewFromInt(5), UsageLimit: 1}},
		{"bad discount type", domain.Coupon{Code: "X", DiscountType: "bogus", Value: decimal.NewFromInt(5), UsageLimit: 1}},
		{"negative value", domain.Coupon{Code: "X", DiscountType: domain.DiscountFixed, Value: decimal.NewFromInt(-5), UsageLimit: 1}},
		{"zero usage limit", domain.Coupon{Code: "X", DiscountType: domain.DiscountFixed, Value: decimal.NewFromInt(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.coupon
			if err := svc.Create(ctx, &c); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}
