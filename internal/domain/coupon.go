package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Coupon struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	DiscountType DiscountType    `json:"discount_type"`
	Value        decimal.Decimal `json:"value"`
	MinAmount    decimal.Decimal `json:"min_amount"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
	UsageLimit   int             `json:"usage_limit"`
	UsageCount   int             `json:"usage_count"` // computed field
	Active       bool            `json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CouponReason identifies why a coupon is not applicable. Callers branch on
// these instead of a generic failure.
type CouponReason string

const (
	CouponReasonNotFound      CouponReason = "not_found"
	CouponReasonInactive      CouponReason = "inactive"
	CouponReasonExpired       CouponReason = "expired"
	CouponReasonUsageExceeded CouponReason = "usage_exceeded"
	CouponReasonBelowMinimum  CouponReason = "below_minimum"
)

// CouponValidation is the outcome of validating a code against an order
// amount. Ineligibility is data, not an error.
type CouponValidation struct {
	Valid    bool            `json:"valid"`
	Reason   CouponReason    `json:"reason,omitempty"`
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// Discount computes the discount a coupon yields on amount. Percentage
// discounts are amount*value/100; fixed discounts never exceed the amount.
func (c *Coupon) Discount(amount decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		d = amount.Mul(c.Value).Div(decimal.NewFromInt(100))
	case DiscountFixed:
		d = c.Value
	}
	if d.GreaterThan(amount) {
		d = amount
	}
	if d.IsNegative() {
		d = decimal.Zero
	}
	return d.Round(2)
}

// Eligibility checks the coupon against the order amount at the given time.
// Usage accounting relies on UsageCount being populated by the repository.
func (c *Coupon) Eligibility(amount decimal.Decimal, now time.Time) (bool, CouponReason) {
	if !c.Active {
		return false, CouponReasonInactive
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return false, CouponReasonExpired
	}
	if c.UsageCount >= c.UsageLimit {
		return false, CouponReasonUsageExceeded
	}
	if amount.LessThan(c.MinAmount) {
		return false, CouponReasonBelowMinimum
	}
	return true, ""
}
