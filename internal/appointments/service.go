package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/scheduler/internal/codes"
	"github.com/clinicbook/scheduler/internal/observability/metrics"
	"github.com/clinicbook/scheduler/pkg/logging"
)

// Directory resolves the external references the scheduling engine needs:
// patients, notification copy for doctors/clinics, and clinic-admin
// membership for authorization.
type Directory interface {
	PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	DoctorRefByID(ctx context.Context, id uuid.UUID) (*DoctorRef, error)
	ClinicRefByID(ctx context.Context, id uuid.UUID) (*ClinicRef, error)
	IsClinicAdmin(ctx context.Context, clinicID, userID uuid.UUID) (bool, error)
}

// NotificationDispatcher hands a text message off for best-effort
// delivery. Implementations must never block the booking path on the
// SMS transport and never surface transport errors to the caller.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, n Notification)
}

// CodeVault tracks confirmation-code expiry. A nil vault disables expiry.
type CodeVault interface {
	Save(ctx context.Context, appointmentID uuid.UUID, code string) error
	Live(ctx context.Context, appointmentID uuid.UUID) (bool, error)
}

// Service is the booking ledger and the confirmation state machine.
type Service struct {
	store      Store
	directory  Directory
	dispatcher NotificationDispatcher
	vault      CodeVault
	metrics    *metrics.BookingMetrics
	logger     *logging.Logger
	newCode    func() string
}

// NewService constructs the scheduling service.
func NewService(store Store, directory Directory, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if directory == nil {
		panic("appointments: directory required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:     store,
		directory: directory,
		logger:    logger,
		newCode:   codes.Generate,
	}
}

// WithDispatcher wires best-effort SMS dispatch.
func (s *Service) WithDispatcher(d NotificationDispatcher) *Service {
	s.dispatcher = d
	return s
}

// WithCodeVault enables confirmation-code expiry.
func (s *Service) WithCodeVault(v CodeVault) *Service {
	s.vault = v
	return s
}

// WithMetrics wires booking counters.
func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// Create books a slot. The conflict check and insert are one atomic
// operation at the store, so of two concurrent calls for the same
// (doctor, instant) exactly one succeeds and the other observes
// ErrSlotTaken. SMS delivery is detached and never rolls the booking back.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	patient, err := s.directory.PatientByID(ctx, req.PatientID)
	if err != nil {
		s.metrics.ObserveBooking("rejected")
		return nil, err
	}

	duration := req.Duration
	if duration <= 0 {
		duration = DefaultDurationMinutes
	}

	appt := &Appointment{
		ID:        uuid.New(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		ClinicID:  req.ClinicID,
		DateTime:  req.DateTime.UTC(),
		Duration:  duration,
		Status:    StatusPending,
		SMSCode:   s.newCode(),
		Notes:     req.Notes,
	}

	if err := s.store.TryCreate(ctx, appt); err != nil {
		if err == ErrSlotTaken {
			s.metrics.ObserveBooking("conflict")
			return nil, ErrSlotTaken
		}
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("appointments: create: %w", err)
	}
	s.metrics.ObserveBooking("created")
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"date_time", appt.DateTime,
	)

	if s.vault != nil {
		if err := s.vault.Save(ctx, appt.ID, appt.SMSCode); err != nil {
			// Expiry tracking is an enhancement over the stored code;
			// losing it must not fail the booking.
			s.logger.Warn("code vault save failed", "error", err, "appointment_id", appt.ID)
		}
	}

	if patient.Phone != "" {
		s.dispatch(ctx, Notification{
			AppointmentID: appt.ID,
			Phone:         patient.Phone,
			Body:          fmt.Sprintf("Your appointment confirmation code is: %s. Valid for 10 minutes.", appt.SMSCode),
		})
	}

	return appt, nil
}

// Confirm verifies the one-time code and transitions PENDING -> CONFIRMED.
// The code is single-use: once confirmed, further attempts fail with
// ErrAlreadyConfirmed even when the code matches.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, code string) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return nil, ErrCancelled
	}
	if appt.Confirmed {
		s.metrics.ObserveConfirmation("already_confirmed")
		return nil, ErrAlreadyConfirmed
	}
	if s.vault != nil {
		live, err := s.vault.Live(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("appointments: confirm: %w", err)
		}
		if !live {
			s.metrics.ObserveConfirmation("expired")
			return nil, ErrCodeExpired
		}
	}
	if appt.SMSCode != code {
		s.metrics.ObserveConfirmation("invalid_code")
		return nil, ErrInvalidCode
	}

	updated, err := s.store.MarkConfirmed(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveConfirmation("confirmed")
	s.logger.Info("appointment confirmed", "appointment_id", id)

	s.sendConfirmationSummary(ctx, updated)
	return updated, nil
}

func (s *Service) sendConfirmationSummary(ctx context.Context, appt *Appointment) {
	patient, err := s.directory.PatientByID(ctx, appt.PatientID)
	if err != nil || patient.Phone == "" {
		return
	}
	doctor, err := s.directory.DoctorRefByID(ctx, appt.DoctorID)
	if err != nil {
		s.logger.Warn("confirmation summary skipped", "error", err, "appointment_id", appt.ID)
		return
	}
	clinic, err := s.directory.ClinicRefByID(ctx, appt.ClinicID)
	if err != nil {
		s.logger.Warn("confirmation summary skipped", "error", err, "appointment_id", appt.ID)
		return
	}
	s.dispatch(ctx, Notification{
		AppointmentID: appt.ID,
		Phone:         patient.Phone,
		Body: fmt.Sprintf("Your appointment at %s with Dr. %s on %s at %s is confirmed!",
			clinic.Name,
			doctor.LastName,
			appt.DateTime.Format("02.01.2006"),
			appt.DateTime.Format("15:04"),
		),
	})
}

// Cancel transitions an appointment to CANCELLED. The acting user must be
// the appointment's patient or an admin of its clinic. Cancelling an
// already-cancelled appointment is a no-op.
func (s *Service) Cancel(ctx context.Context, id, actingUserID uuid.UUID) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patient, err := s.authorize(ctx, appt, actingUserID)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return appt, nil
	}

	cancelled, err := s.store.MarkCancelled(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveCancellation()
	s.logger.Info("appointment cancelled", "appointment_id", id, "acting_user_id", actingUserID)

	if patient.Phone != "" {
		s.dispatch(ctx, Notification{
			AppointmentID: appt.ID,
			Phone:         patient.Phone,
			Body:          "Your appointment has been cancelled. Please contact the clinic for more information.",
		})
	}
	return cancelled, nil
}

// Reschedule moves an appointment to a new instant. Unlike a raw field
// patch, this re-enters the ledger's conflict check, so the
// no-double-booking invariant holds across reschedules too.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, dateTime time.Time, actingUserID uuid.UUID) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, appt, actingUserID); err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return nil, ErrCancelled
	}

	moved, err := s.store.Move(ctx, id, dateTime.UTC())
	if err != nil {
		if err == ErrSlotTaken {
			s.metrics.ObserveBooking("conflict")
		}
		return nil, err
	}
	s.logger.Info("appointment rescheduled", "appointment_id", id, "date_time", moved.DateTime)
	return moved, nil
}

// UpdateNotes patches the free-text notes. It cannot touch the
// (doctor, instant) key; changing the time goes through Reschedule.
func (s *Service) UpdateNotes(ctx context.Context, id uuid.UUID, notes string, actingUserID uuid.UUID) (*Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, appt, actingUserID); err != nil {
		return nil, err
	}
	return s.store.UpdateNotes(ctx, id, notes)
}

// Get loads one appointment.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.store.Get(ctx, id)
}

// List returns appointments matching the filter, ascending by dateTime.
func (s *Service) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	return s.store.List(ctx, f)
}

// ClinicCalendar returns all appointments of a clinic inside [from, to].
// Restricted to admins of that clinic.
func (s *Service) ClinicCalendar(ctx context.Context, clinicID uuid.UUID, from, to time.Time, actingUserID uuid.UUID) ([]*Appointment, error) {
	admin, err := s.directory.IsClinicAdmin(ctx, clinicID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("appointments: clinic calendar: %w", err)
	}
	if !admin {
		return nil, ErrNotAuthorized
	}
	return s.store.List(ctx, Filter{ClinicID: &clinicID, From: &from, To: &to})
}

// authorize returns the appointment's patient when the acting user is
// that patient or a clinic admin, ErrNotAuthorized otherwise.
func (s *Service) authorize(ctx context.Context, appt *Appointment, actingUserID uuid.UUID) (*Patient, error) {
	patient, err := s.directory.PatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	if patient.UserID == actingUserID {
		return patient, nil
	}
	admin, err := s.directory.IsClinicAdmin(ctx, appt.ClinicID, actingUserID)
	if err != nil {
		return nil, fmt.Errorf("appointments: authorize: %w", err)
	}
	if !admin {
		return nil, ErrNotAuthorized
	}
	return patient, nil
}

func (s *Service) dispatch(ctx context.Context, n Notification) {
	if s.dispatcher == nil {
		s.logger.Debug("no notification dispatcher configured", "appointment_id", n.AppointmentID)
		return
	}
	s.dispatcher.Dispatch(ctx, n)
}
