package config

import "time"

const (
	// Reminder offsets relative to the event start
	ReminderOffsetEarly    = -48 * time.Hour
	ReminderOffsetDayOf    = -24 * time.Hour
	ReminderOffsetFinal    = -2 * time.Hour
	ReminderOffsetFollowUp = 2 * time.Hour

	// Reminder dispatch
	ReminderMaxAttempts  = 3
	DispatchBatchDefault = 50
	DispatchSendDelay    = 200 * time.Millisecond

	// Stale claim recovery
	StaleClaimSweep = 60 * time.Second
	StaleClaimAge   = 5 * time.Minute

	// Vendor call timeouts
	PaymentTimeout  = 30 * time.Second
	EmailTimeout    = 15 * time.Second
	CalendarTimeout = 10 * time.Second
	CatalogTimeout  = 10 * time.Second

	// Confirmation codes
	ConfirmationCodeLen = 8
)
