package doctors

import (
	"github.com/google/uuid"

	"github.com/clinicbook/scheduler/internal/schedule"
)

// Doctor is a practitioner attached to one clinic.
type Doctor struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ClinicID  uuid.UUID `json:"clinicId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Specialty string    `json:"specialty,omitempty"`
}

// Patient is a bookable person in the directory.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone,omitempty"`
}

// Clinic groups doctors and their admins.
type Clinic struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// StoredOverride is a persisted date override with its row identity, so
// that individual overrides can be deleted.
type StoredOverride struct {
	ID uuid.UUID `json:"id"`
	schedule.Override
}
