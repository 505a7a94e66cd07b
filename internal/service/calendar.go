package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelierhq/workshopd/internal/domain"
	"github.com/atelierhq/workshopd/internal/gateway"
)

// CalendarService keeps the local blockout table as the source of truth and
// mirrors changes to the external calendar on a best-effort basis. A mirror
// failure never fails the local operation.
type CalendarService struct {
	blockouts domain.BlockoutRepository
	mirror    gateway.CalendarMirror
}

func NewCalendarService(blockouts domain.BlockoutRepository, mirror gateway.CalendarMirror) *CalendarService {
	return &CalendarService{blockouts: blockouts, mirror: mirror}
}

func (s *CalendarService) IsDateAvailable(ctx context.Context, date time.Time) (bool, error) {
	covering, err := s.blockouts.Covering(ctx, date)
	if err != nil {
		return false, fmt.Errorf("check blockouts: %w", err)
	}
	return len(covering) == 0, nil
}

func (s *CalendarService) BlockDate(ctx context.Context, date time.Time, reason string) (*domain.Blockout, error) {
	return s.BlockDateRange(ctx, date, date, reason)
}

func (s *CalendarService) BlockDateRange(ctx context.Context, start, end time.Time, reason string) (*domain.Blockout, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date before start date", domain.ErrValidation)
	}

	b := &domain.Blockout{StartDate: start, EndDate: end, Reason: reason}
	if err := s.blockouts.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create blockout: %w", err)
	}

	if s.mirror != nil {
		eventID, err := s.mirror.CreateBlockEvent(ctx, start, end, reason)
		if err != nil {
			slog.Warn("calendar mirror create failed", "error", err, "blockout_id", b.ID)
			return b, nil
		}
		if err := s.blockouts.SetMirrorEventID(ctx, b.ID, eventID); err != nil {
			slog.Warn("store mirror event id failed", "error", err, "blockout_id", b.ID)
			return b, nil
		}
		b.MirrorEventID = eventID
	}

	return b, nil
}

// UnblockDate removes every blockout covering the date and tries to delete
// the mirrored events.
func (s *CalendarService) UnblockDate(ctx context.Context, date time.Time) error {
	covering, err := s.blockouts.Covering(ctx, date)
	if err != nil {
		return fmt.Errorf("find blockouts: %w", err)
	}
	if len(covering) == 0 {
		return domain.ErrBlockoutNotFound
	}

	for _, b := range covering {
		if err := s.blockouts.Delete(ctx, b.ID); err != nil {
			return fmt.Errorf("delete blockout: %w", err)
		}
		if s.mirror != nil && b.MirrorEventID != "" {
			if err := s.mirror.DeleteEvent(ctx, b.MirrorEventID); err != nil {
				slog.Warn("calendar mirror delete failed", "error", err, "blockout_id", b.ID, "event_id", b.MirrorEventID)
			}
		}
	}
	return nil
}
