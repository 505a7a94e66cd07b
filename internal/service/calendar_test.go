package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelierhq/workshopd/internal/domain"
	"github.com/atelierhq/workshopd/internal/repository/memory"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalendarServiceBlockAndAvailability(t *testing.T) {
	ctx := context.Background()
	mirror := &stubMirror{}
	svc := NewCalendarService(memory.NewBlockoutRepo(), mirror)

	start := date(2026, 9, 10)
	end := date(2026, 9, 12)
	b, err := svc.BlockDateRange(ctx, start, end, "studio maintenance")
	if err != nil {
		t.Fatalf("BlockDateRange() error = %v", err)
	}
	if b.MirrorEventID == "" {
		t.Error("expected mirror event id to be stored")
	}

	tests := []struct {
		day  time.Time
		free bool
	}{
		{date(2026, 9, 9), true},
		{date(2026, 9, 10), false},
		{date(2026, 9, 11), false},
		{date(2026, 9, 12), false},
		{date(2026, 9, 13), true},
	}
	for _, tt := range tests {
		free, err := svc.IsDateAvailable(ctx, tt.day)
		if err != nil {
			t.Fatalf("IsDateAvailable(%s) error = %v", tt.day.Format("2006-01-02"), err)
		}
		if free != tt.free {
			t.Errorf("IsDateAvailable(%s) = %v, want %v", tt.day.Format("2006-01-02"), free, tt.free)
		}
	}

	if err := svc.UnblockDate(ctx, date(2026, 9, 11)); err != nil {
		t.Fatalf("UnblockDate() error = %v", err)
	}
	if len(mirror.deleted) != 1 {
		t.Errorf("mirror deletes = %d, want 1", len(mirror.deleted))
	}
	free, _ := svc.IsDateAvailable(ctx, date(2026, 9, 11))
	if !free {
		t.Error("date should be available after unblock")
	}
}

func TestCalendarServiceUnblockNotFound(t *testing.T) {
	svc := NewCalendarService(memory.NewBlockoutRepo(), nil)
	err := svc.UnblockDate(context.Background(), date(2026, 9, 10))
	if !errors.Is(err, domain.ErrBlockoutNotFound) {
		t.Errorf("UnblockDate() error = %v, want ErrBlockoutNotFound", err)
	}
}

func TestCalendarServiceMirrorFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	mirror := &stubMirror{createErr: errors.New("calendar api down")}
	svc := NewCalendarService(memory.NewBlockoutRepo(), mirror)

	day := date(2026, 9, 10)
	b, err := svc.BlockDate(ctx, day, "holiday")
	if err != nil {
		t.Fatalf("BlockDate() error = %v", err)
	}
	if b.MirrorEventID != "" {
		t.Errorf("MirrorEventID = %q, want empty after mirror failure", b.MirrorEventID)
	}

	// The local blockout still gates availability.
	free, err := svc.IsDateAvailable(ctx, day)
	if err != nil {
		t.Fatalf("IsDateAvailable() error = %v", err)
	}
	if free {
		t.Error("date should be blocked despite mirror failure")
	}
}

func TestCalendarServiceRejectsInvertedRange(t *testing.T) {
	svc := NewCalendarService(memory.NewBlockoutRepo(), nil)
	_, err := svc.BlockDateRange(context.Background(), date(2026, 9, 12), date(2026, 9, 10), "oops")
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("BlockDateRange() error = %v, want ErrValidation", err)
	}
}
