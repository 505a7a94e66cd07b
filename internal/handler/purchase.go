package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/atelierhq/workshopd/internal/domain"
)

func (h *Handler) CreatePurchase(c echo.Context) error {
	var req domain.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	result, err := h.purchases.ProcessPurchase(c.Request().Context(), &req)
	if err != nil {
		return writeError(c, err)
	}

	status := http.StatusCreated
	if result.Status == domain.PurchaseFailed {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, result)
}

func (h *Handler) PurchaseStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid purchase id"})
	}

	status, err := h.purchases.GetPurchaseStatus(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) CancelPurchase(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid purchase id"})
	}

	if err := h.purchases.CancelPurchase(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}

	status, err := h.purchases.GetPurchaseStatus(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}
