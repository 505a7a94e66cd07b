package domain

import "time"

// Blockout is a locally persisted blocked date range. MirrorEventID is the
// identifier of the best-effort copy in the external calendar, empty when
// mirroring failed or is disabled.
type Blockout struct {
	ID            int64     `json:"id"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Reason        string    `json:"reason"`
	MirrorEventID string    `json:"mirror_event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Contains reports whether the given date falls within the blockout range,
// boundaries included. Only the calendar day matters.
func (b *Blockout) Contains(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	start := b.StartDate.Truncate(24 * time.Hour)
	end := b.EndDate.Truncate(24 * time.Hour)
	return !d.Before(start) && !d.After(end)
}
