package doctors

import "errors"

var (
	// ErrDoctorNotFound is returned when the doctor does not exist.
	ErrDoctorNotFound = errors.New("doctor not found")

	// ErrPatientNotFound is returned when the patient does not exist.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrClinicNotFound is returned when the clinic does not exist.
	ErrClinicNotFound = errors.New("clinic not found")

	// ErrOverrideNotFound is returned when the override does not exist or
	// belongs to another doctor.
	ErrOverrideNotFound = errors.New("availability override not found")

	// ErrNotAuthorized is returned when the acting user may not manage
	// this doctor's schedule.
	ErrNotAuthorized = errors.New("not authorized for this doctor")

	// ErrPastDate is returned for overrides dated before today.
	ErrPastDate = errors.New("override date is in the past")

	// ErrDuplicateDay is returned when a weekly schedule carries two
	// entries for the same day of week.
	ErrDuplicateDay = errors.New("duplicate day of week in schedule")

	// ErrDuplicateDate is returned when an override set carries two
	// entries for the same calendar date.
	ErrDuplicateDate = errors.New("duplicate date in overrides")
)
