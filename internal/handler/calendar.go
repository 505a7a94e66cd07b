package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

type createBlockoutRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

func (h *Handler) Availability(c echo.Context) error {
	date, err := time.Parse(dateLayout, c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid date, expected YYYY-MM-DD"})
	}

	available, err := h.calendar.IsDateAvailable(c.Request().Context(), date)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"date":      date.Format(dateLayout),
		"available": available,
	})
}

func (h *Handler) CreateBlockout(c echo.Context) error {
	var req createBlockoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid start_date, expected YYYY-MM-DD"})
	}
	end := start
	if req.EndDate != "" {
		if end, err = time.Parse(dateLayout, req.EndDate); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid end_date, expected YYYY-MM-DD"})
		}
	}

	blockout, err := h.calendar.BlockDateRange(c.Request().Context(), start, end, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, blockout)
}

func (h *Handler) DeleteBlockout(c echo.Context) error {
	date, err := time.Parse(dateLayout, c.Param("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid date, expected YYYY-MM-DD"})
	}

	if err := h.calendar.UnblockDate(c.Request().Context(), date); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
