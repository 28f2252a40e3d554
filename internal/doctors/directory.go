package doctors

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicbook/scheduler/internal/appointments"
)

// Directory adapts the doctors store to the booking service's reference
// lookups.
type Directory struct {
	store Store
}

// NewDirectory wraps a store.
func NewDirectory(store Store) *Directory {
	if store == nil {
		panic("doctors: store required")
	}
	return &Directory{store: store}
}

func (d *Directory) PatientByID(ctx context.Context, id uuid.UUID) (*appointments.Patient, error) {
	p, err := d.store.PatientByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, appointments.ErrPatientNotFound
		}
		return nil, err
	}
	return &appointments.Patient{
		ID:        p.ID,
		UserID:    p.UserID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
	}, nil
}

func (d *Directory) DoctorRefByID(ctx context.Context, id uuid.UUID) (*appointments.DoctorRef, error) {
	doc, err := d.store.DoctorByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &appointments.DoctorRef{
		ID:        doc.ID,
		FirstName: doc.FirstName,
		LastName:  doc.LastName,
	}, nil
}

func (d *Directory) ClinicRefByID(ctx context.Context, id uuid.UUID) (*appointments.ClinicRef, error) {
	c, err := d.store.ClinicByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &appointments.ClinicRef{ID: c.ID, Name: c.Name}, nil
}

func (d *Directory) IsClinicAdmin(ctx context.Context, clinicID, userID uuid.UUID) (bool, error) {
	return d.store.IsClinicAdmin(ctx, clinicID, userID)
}

var _ appointments.Directory = (*Directory)(nil)
