package domain

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrReminderNotFound = errors.New("reminder job not found")
	ErrBlockoutNotFound = errors.New("blockout not found")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrValidation       = errors.New("invalid request")
	ErrUpstream         = errors.New("upstream collaborator failure")
	ErrAlreadyRedeemed  = errors.New("coupon already redeemed for this booking")
	ErrCouponExhausted  = errors.New("coupon usage limit reached")
	ErrDuplicateCoupon  = errors.New("coupon code already exists")
)
