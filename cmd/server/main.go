package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	workshopd "github.com/atelierhq/workshopd"
	"github.com/atelierhq/workshopd/internal/config"
	"github.com/atelierhq/workshopd/internal/gateway"
	"github.com/atelierhq/workshopd/internal/handler"
	"github.com/atelierhq/workshopd/internal/middleware"
	"github.com/atelierhq/workshopd/internal/repository"
	"github.com/atelierhq/workshopd/internal/service"
	"github.com/atelierhq/workshopd/internal/template"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(workshopd.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	bookingRepo := repository.NewBookingRepo(pool)
	couponRepo := repository.NewCouponRepo(pool)
	blockoutRepo := repository.NewBlockoutRepo(pool)
	reminderRepo := repository.NewReminderRepo(pool)

	// Vendor gateways
	payments := gateway.NewHTTPPaymentGateway(cfg.PaymentAPIURL, cfg.PaymentAPIKey, config.PaymentTimeout)
	emails := gateway.NewHTTPEmailGateway(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom, config.EmailTimeout)
	catalog := gateway.NewHTTPProductCatalog(cfg.CatalogAPIURL, config.CatalogTimeout)
	var mirror gateway.CalendarMirror
	if cfg.CalendarAPIURL != "" {
		mirror = gateway.NewHTTPCalendarMirror(cfg.CalendarAPIURL, cfg.CalendarAPIKey, cfg.CalendarID, config.CalendarTimeout)
	}

	templates, err := template.NewBuiltinProvider()
	if err != nil {
		slog.Error("failed to build templates", "error", err)
		os.Exit(1)
	}

	// Services
	couponService := service.NewCouponService(couponRepo)
	calendarService := service.NewCalendarService(blockoutRepo, mirror)
	scheduler := service.NewReminderScheduler(bookingRepo, reminderRepo, service.DefaultSchedulerConfig())
	dispatcherCfg := service.DefaultDispatcherConfig()
	dispatcherCfg.BatchSize = cfg.DispatchBatchSize
	dispatcherCfg.Location = cfg.StudioAddr
	dispatcherCfg.MeetingLink = cfg.MeetingLink
	dispatcher := service.NewReminderDispatcher(reminderRepo, bookingRepo, emails, templates, dispatcherCfg)
	purchaseService := service.NewPurchaseService(bookingRepo, couponService, calendarService, scheduler, payments, catalog)

	// HTTP server
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover(), middleware.Logging())

	h := handler.New(handler.Deps{
		Cfg:        cfg,
		DB:         pool,
		Purchases:  purchaseService,
		Coupons:    couponService,
		Calendar:   calendarService,
		Dispatcher: dispatcher,
	})
	h.Register(e)

	// Reminder dispatch loop
	go func() {
		interval := time.Duration(cfg.DispatchIntervalSec) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				processed, err := dispatcher.ProcessPending(ctx)
				if err != nil {
					slog.Error("reminder dispatch run failed", "error", err)
					continue
				}
				if processed > 0 {
					slog.Info("reminder dispatch run", "processed", processed)
				}
			}
		}
	}()

	// Stale claim release loop
	go func() {
		ticker := time.NewTicker(config.StaleClaimSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				released, err := dispatcher.ReleaseStaleClaims(ctx, config.StaleClaimAge)
				if err != nil {
					slog.Error("release stale claims failed", "error", err)
					continue
				}
				if released > 0 {
					slog.Warn("released stale reminder claims", "count", released)
				}
			}
		}
	}()

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		slog.Info("starting server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped gracefully")
}
