package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"

	"github.com/atelierhq/workshopd/internal/config"
	"github.com/atelierhq/workshopd/internal/domain"
	"github.com/atelierhq/workshopd/internal/service"
)

// Handler holds all dependencies needed by the route handlers.
type Handler struct {
	cfg        *config.Config
	db         *pgxpool.Pool
	purchases  *service.PurchaseService
	coupons    *service.CouponService
	calendar   *service.CalendarService
	dispatcher *service.ReminderDispatcher
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Cfg        *config.Config
	DB         *pgxpool.Pool
	Purchases  *service.PurchaseService
	Coupons    *service.CouponService
	Calendar   *service.CalendarService
	Dispatcher *service.ReminderDispatcher
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		cfg:        deps.Cfg,
		db:         deps.DB,
		purchases:  deps.Purchases,
		coupons:    deps.Coupons,
		calendar:   deps.Calendar,
		dispatcher: deps.Dispatcher,
	}
}

// Register wires all routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	api := e.Group("/api")
	api.POST("/purchases", h.CreatePurchase)
	api.GET("/purchases/:id", h.PurchaseStatus)
	api.DELETE("/purchases/:id", h.CancelPurchase)

	api.POST("/coupons", h.CreateCoupon)
	api.GET("/coupons/:code/validate", h.ValidateCoupon)

	api.GET("/availability", h.Availability)
	api.POST("/calendar/blockouts", h.CreateBlockout)
	api.DELETE("/calendar/blockouts/:date", h.DeleteBlockout)

	// Invoked by the cron scheduler, not end users.
	e.POST("/internal/reminders/process", h.ProcessReminders)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the domain error taxonomy onto HTTP statuses.
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrBookingNotFound),
		errors.Is(err, domain.ErrCouponNotFound),
		errors.Is(err, domain.ErrBlockoutNotFound),
		errors.Is(err, domain.ErrReminderNotFound):
		return c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrDuplicateCoupon):
		return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUpstream):
		return c.JSON(http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
