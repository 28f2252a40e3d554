package doctors

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/scheduler/internal/appointments"
	"github.com/clinicbook/scheduler/internal/clock"
	"github.com/clinicbook/scheduler/internal/schedule"
	"github.com/clinicbook/scheduler/pkg/logging"
)

// OccupancySource answers which instants a doctor already has active
// appointments at. Satisfied by the appointments store.
type OccupancySource interface {
	OccupiedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time, statuses []appointments.Status) ([]time.Time, error)
}

// Service resolves availability and manages doctor schedules.
type Service struct {
	store       Store
	occupancy   OccupancySource
	clock       clock.Clock
	logger      *logging.Logger
	slotMinutes int
}

// NewService constructs the availability service.
func NewService(store Store, occupancy OccupancySource, logger *logging.Logger) *Service {
	if store == nil {
		panic("doctors: store required")
	}
	if occupancy == nil {
		panic("doctors: occupancy source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:       store,
		occupancy:   occupancy,
		clock:       clock.System{},
		logger:      logger,
		slotMinutes: schedule.DefaultSlotMinutes,
	}
}

// WithClock swaps the time source.
func (s *Service) WithClock(c clock.Clock) *Service {
	if c != nil {
		s.clock = c
	}
	return s
}

// WithSlotMinutes changes the booking granularity.
func (s *Service) WithSlotMinutes(minutes int) *Service {
	if minutes > 0 {
		s.slotMinutes = minutes
	}
	return s
}

// AvailableSlots returns the bookable "HH:MM" start times for a doctor on
// one calendar date. A date with no working window, a fully booked day,
// and a day off all yield an empty list, not an error.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	if _, err := s.store.DoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}

	weekly, err := s.store.WeeklySchedule(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("doctors: available slots: %w", err)
	}

	var overrides []schedule.Override
	if s.store.SupportsOverrides(ctx) {
		o, err := s.store.OverrideForDate(ctx, doctorID, date)
		if err != nil {
			return nil, fmt.Errorf("doctors: available slots: %w", err)
		}
		if o != nil {
			overrides = append(overrides, *o)
		}
	}

	window, ok := schedule.ResolveWindow(weekly, overrides, date)
	if !ok {
		return []string{}, nil
	}

	dayStart := truncateToDate(date)
	dayEnd := dayStart.Add(24*time.Hour - time.Second)
	instants, err := s.occupancy.OccupiedInstants(ctx, doctorID, dayStart, dayEnd, appointments.ActiveStatuses)
	if err != nil {
		return nil, fmt.Errorf("doctors: available slots: %w", err)
	}

	slots, err := schedule.SlotList(window, schedule.OccupiedTimes(instants), s.slotMinutes)
	if err != nil {
		return nil, fmt.Errorf("doctors: available slots: %w", err)
	}
	if slots == nil {
		slots = []string{}
	}
	return slots, nil
}

// WeeklySchedule returns the doctor's recurring schedule.
func (s *Service) WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]schedule.WeeklyEntry, error) {
	if _, err := s.store.DoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.store.WeeklySchedule(ctx, doctorID)
}

// ReplaceWeeklySchedule swaps the doctor's recurring schedule wholesale.
// The acting user must be the doctor or an admin of the doctor's clinic.
// At most one entry per day of week is accepted.
func (s *Service) ReplaceWeeklySchedule(ctx context.Context, doctorID uuid.UUID, entries []schedule.WeeklyEntry, actingUserID uuid.UUID) error {
	doctor, err := s.store.DoctorByID(ctx, doctorID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, doctor, actingUserID, true); err != nil {
		return err
	}

	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.DayOfWeek]; dup {
			return fmt.Errorf("%w: day %d", ErrDuplicateDay, e.DayOfWeek)
		}
		seen[e.DayOfWeek] = struct{}{}
	}

	if err := s.store.ReplaceWeeklySchedule(ctx, doctorID, entries); err != nil {
		return err
	}
	s.logger.Info("weekly schedule replaced", "doctor_id", doctorID, "entries", len(entries))
	return nil
}

// ListFutureOverrides returns the doctor's overrides from today onward.
// Deployments without the override tier get an empty list.
func (s *Service) ListFutureOverrides(ctx context.Context, doctorID uuid.UUID) ([]StoredOverride, error) {
	if _, err := s.store.DoctorByID(ctx, doctorID); err != nil {
		return nil, err
	}
	if !s.store.SupportsOverrides(ctx) {
		return []StoredOverride{}, nil
	}
	return s.store.FutureOverrides(ctx, doctorID, s.today())
}

// ReplaceFutureOverrides swaps all overrides from today onward with the
// given set. Only the doctor themselves may edit overrides. Dates in the
// past are rejected. When the override tier does not exist, the call
// degrades to a no-op and reports zero stored overrides.
func (s *Service) ReplaceFutureOverrides(ctx context.Context, doctorID uuid.UUID, overrides []schedule.Override, actingUserID uuid.UUID) (int, error) {
	doctor, err := s.store.DoctorByID(ctx, doctorID)
	if err != nil {
		return 0, err
	}
	if err := s.authorize(ctx, doctor, actingUserID, false); err != nil {
		return 0, err
	}

	today := s.today()
	seen := make(map[time.Time]struct{}, len(overrides))
	for _, o := range overrides {
		if err := o.Validate(); err != nil {
			return 0, err
		}
		day := truncateToDate(o.Date)
		if day.Before(today) {
			return 0, fmt.Errorf("%w: %s", ErrPastDate, o.Date.Format("2006-01-02"))
		}
		if _, dup := seen[day]; dup {
			return 0, fmt.Errorf("%w: %s", ErrDuplicateDate, o.Date.Format("2006-01-02"))
		}
		seen[day] = struct{}{}
	}

	if !s.store.SupportsOverrides(ctx) {
		s.logger.Warn("override tier unavailable, schedule exceptions not stored", "doctor_id", doctorID)
		return 0, nil
	}

	n, err := s.store.ReplaceFutureOverrides(ctx, doctorID, today, overrides)
	if err != nil {
		return 0, err
	}
	s.logger.Info("availability overrides replaced", "doctor_id", doctorID, "overrides", n)
	return n, nil
}

// DeleteOverride removes one override. The acting user must be the
// doctor or an admin of the doctor's clinic.
func (s *Service) DeleteOverride(ctx context.Context, doctorID, overrideID, actingUserID uuid.UUID) error {
	doctor, err := s.store.DoctorByID(ctx, doctorID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, doctor, actingUserID, true); err != nil {
		return err
	}
	return s.store.DeleteOverride(ctx, doctorID, overrideID)
}

func (s *Service) today() time.Time {
	return truncateToDate(s.clock.Now())
}

// authorize accepts the doctor's own user and, when adminAllowed is set,
// admins of the doctor's clinic.
func (s *Service) authorize(ctx context.Context, doctor *Doctor, actingUserID uuid.UUID, adminAllowed bool) error {
	if doctor.UserID == actingUserID {
		return nil
	}
	if !adminAllowed {
		return ErrNotAuthorized
	}
	admin, err := s.store.IsClinicAdmin(ctx, doctor.ClinicID, actingUserID)
	if err != nil {
		return fmt.Errorf("doctors: authorize: %w", err)
	}
	if !admin {
		return ErrNotAuthorized
	}
	return nil
}
