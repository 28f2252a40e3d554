package appointments

import "errors"

var (
	// ErrSlotTaken is returned when an active appointment already claims
	// the (doctor, instant) pair.
	ErrSlotTaken = errors.New("time slot is already booked")

	// ErrAppointmentNotFound is returned when the appointment does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrPatientNotFound is returned when the patient reference does not resolve.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrAlreadyConfirmed is returned on a second confirmation attempt.
	ErrAlreadyConfirmed = errors.New("appointment already confirmed")

	// ErrInvalidCode is returned when the supplied confirmation code does
	// not match the issued one.
	ErrInvalidCode = errors.New("invalid confirmation code")

	// ErrCodeExpired is returned when the confirmation code outlived its window.
	ErrCodeExpired = errors.New("confirmation code expired")

	// ErrCancelled is returned for transitions attempted on a cancelled
	// appointment; CANCELLED is terminal.
	ErrCancelled = errors.New("appointment is cancelled")

	// ErrNotAuthorized is returned when the acting user is neither the
	// appointment's patient nor an admin of its clinic.
	ErrNotAuthorized = errors.New("not authorized for this appointment")
)
