package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Core
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        int    `env:"PORT" envDefault:"8080"`

	// Payment gateway
	PaymentAPIURL string `env:"PAYMENT_API_URL,required"`
	PaymentAPIKey string `env:"PAYMENT_API_KEY,required"`

	// Email gateway
	EmailAPIURL string `env:"EMAIL_API_URL,required"`
	EmailAPIKey string `env:"EMAIL_API_KEY,required"`
	EmailFrom   string `env:"EMAIL_FROM" envDefault:"bookings@atelierhq.studio"`
	StudioName  string `env:"STUDIO_NAME" envDefault:"Atelier HQ"`
	StudioAddr  string `env:"STUDIO_ADDRESS"`
	MeetingLink string `env:"MEETING_LINK"`

	// Calendar mirror
	CalendarAPIURL string `env:"CALENDAR_API_URL"`
	CalendarAPIKey string `env:"CALENDAR_API_KEY"`
	CalendarID     string `env:"CALENDAR_ID"`

	// Product catalog
	CatalogAPIURL string `env:"CATALOG_API_URL,required"`

	// Reminder dispatch
	DispatchIntervalSec int `env:"DISPATCH_INTERVAL_SEC" envDefault:"300"`
	DispatchBatchSize   int `env:"DISPATCH_BATCH_SIZE" envDefault:"50"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
