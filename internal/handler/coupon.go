package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/atelierhq/workshopd/internal/domain"
)

type createCouponRequest struct {
	Code         string     `json:"code"`
	DiscountType string     `json:"discount_type"`
	Value        string     `json:"value"`
	MinAmount    string     `json:"min_amount"`
	ExpiresAt    *time.Time `json:"expires_at"`
	UsageLimit   int        `json:"usage_limit"`
}

func (h *Handler) CreateCoupon(c echo.Context) error {
	var req createCouponRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid discount value"})
	}
	minAmount := decimal.Zero
	if req.MinAmount != "" {
		if minAmount, err = decimal.NewFromString(req.MinAmount); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid minimum amount"})
		}
	}

	coupon := &domain.Coupon{
		Code:         req.Code,
		DiscountType: domain.DiscountType(req.DiscountType),
		Value:        value,
		MinAmount:    minAmount,
		ExpiresAt:    req.ExpiresAt,
		UsageLimit:   req.UsageLimit,
		Active:       true,
	}
	if err := h.coupons.Create(c.Request().Context(), coupon); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, coupon)
}

func (h *Handler) ValidateCoupon(c echo.Context) error {
	amount, err := decimal.NewFromString(c.QueryParam("amount"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid amount"})
	}

	validation, err := h.coupons.Validate(c.Request().Context(), c.Param("code"), amount)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, validation)
}
