package appointments

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// ActiveStatuses are the statuses that occupy a (doctor, instant) slot.
// CANCELLED appointments never block a slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// DefaultDurationMinutes is applied when a booking request omits duration.
const DefaultDurationMinutes = 30

// Appointment is a ledger entry binding a patient, a doctor, and a clinic
// to one exact instant. Cancellation is a status transition, never a
// physical delete.
type Appointment struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patientId"`
	DoctorID  uuid.UUID `json:"doctorId"`
	ClinicID  uuid.UUID `json:"clinicId"`
	DateTime  time.Time `json:"dateTime"`
	Duration  int       `json:"duration"`
	Status    Status    `json:"status"`
	SMSCode   string    `json:"-"`
	Confirmed bool      `json:"confirmed"`
	SMSSent   bool      `json:"smsSent"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRequest carries the inputs for a new booking.
type CreateRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	ClinicID  uuid.UUID
	DateTime  time.Time
	Duration  int
	Notes     string
}

// Filter narrows appointment listings. Nil fields match everything.
type Filter struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	ClinicID  *uuid.UUID
	Status    *Status
	From      *time.Time
	To        *time.Time
}

// Notification is a best-effort text message owed to a patient. Delivery
// never affects booking correctness.
type Notification struct {
	AppointmentID uuid.UUID
	Phone         string
	Body          string
}

// Patient is the slice of the directory the scheduling engine needs.
type Patient struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	FirstName string
	LastName  string
	Phone     string
}

// DoctorRef identifies a doctor for notification copy.
type DoctorRef struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
}

// ClinicRef identifies a clinic for notification copy.
type ClinicRef struct {
	ID   uuid.UUID
	Name string
}
