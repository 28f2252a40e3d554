package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the slice of the directory store the booking ledger requires.
// TryCreate and Move must be atomic with respect to the no-double-booking
// invariant: at most one active appointment per (doctor, instant).
type Store interface {
	TryCreate(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]*Appointment, error)
	OccupiedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]time.Time, error)
	MarkConfirmed(ctx context.Context, id uuid.UUID) (*Appointment, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (*Appointment, error)
	MarkSMSSent(ctx context.Context, id uuid.UUID) error
	Move(ctx context.Context, id uuid.UUID, dateTime time.Time) (*Appointment, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error)
}

// InMemoryStore keeps appointments in a mutex-guarded map. The conflict
// checks run under the lock, so concurrent TryCreate calls for the same
// slot serialize the same way the database constraint does.
type InMemoryStore struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]*Appointment
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{appts: make(map[uuid.UUID]*Appointment)}
}

// TryCreate inserts the appointment unless an active one claims the slot.
func (s *InMemoryStore) TryCreate(ctx context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.appts {
		if existing.DoctorID == appt.DoctorID &&
			existing.DateTime.Equal(appt.DateTime) &&
			existing.Status != StatusCancelled {
			return ErrSlotTaken
		}
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	stored := *appt
	s.appts[appt.ID] = &stored
	return nil
}

// Get returns a copy of the appointment.
func (s *InMemoryStore) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	copied := *appt
	return &copied, nil
}

// List returns matching appointments ordered by dateTime ascending.
func (s *InMemoryStore) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Appointment
	for _, appt := range s.appts {
		if !matches(appt, f) {
			continue
		}
		copied := *appt
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateTime.Before(out[j].DateTime) })
	return out, nil
}

func matches(appt *Appointment, f Filter) bool {
	if f.PatientID != nil && appt.PatientID != *f.PatientID {
		return false
	}
	if f.DoctorID != nil && appt.DoctorID != *f.DoctorID {
		return false
	}
	if f.ClinicID != nil && appt.ClinicID != *f.ClinicID {
		return false
	}
	if f.Status != nil && appt.Status != *f.Status {
		return false
	}
	if f.From != nil && appt.DateTime.Before(*f.From) {
		return false
	}
	if f.To != nil && appt.DateTime.After(*f.To) {
		return false
	}
	return true
}

// OccupiedInstants returns the claimed instants for a doctor inside
// [from, to], restricted to the given statuses.
func (s *InMemoryStore) OccupiedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[Status]struct{}, len(statuses))
	for _, st := range statuses {
		wanted[st] = struct{}{}
	}

	var out []time.Time
	for _, appt := range s.appts {
		if appt.DoctorID != doctorID {
			continue
		}
		if appt.DateTime.Before(from) || appt.DateTime.After(to) {
			continue
		}
		if _, ok := wanted[appt.Status]; !ok {
			continue
		}
		out = append(out, appt.DateTime)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// MarkConfirmed flips the appointment to CONFIRMED.
func (s *InMemoryStore) MarkConfirmed(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Confirmed = true
	appt.Status = StatusConfirmed
	copied := *appt
	return &copied, nil
}

// MarkCancelled flips the appointment to CANCELLED; the row is retained.
func (s *InMemoryStore) MarkCancelled(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Status = StatusCancelled
	copied := *appt
	return &copied, nil
}

// MarkSMSSent records successful delivery of the code text.
func (s *InMemoryStore) MarkSMSSent(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	appt.SMSSent = true
	return nil
}

// Move reassigns the appointment to a new instant, re-checking the
// no-double-booking invariant under the lock.
func (s *InMemoryStore) Move(ctx context.Context, id uuid.UUID, dateTime time.Time) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	for otherID, existing := range s.appts {
		if otherID == id {
			continue
		}
		if existing.DoctorID == appt.DoctorID &&
			existing.DateTime.Equal(dateTime) &&
			existing.Status != StatusCancelled {
			return nil, ErrSlotTaken
		}
	}
	appt.DateTime = dateTime
	copied := *appt
	return &copied, nil
}

// UpdateNotes patches the free-text notes only.
func (s *InMemoryStore) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	appt.Notes = notes
	copied := *appt
	return &copied, nil
}

var _ Store = (*InMemoryStore)(nil)
