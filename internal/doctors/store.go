package doctors

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/scheduler/internal/schedule"
)

// Store is the directory and schedule persistence contract. Weekly
// schedules and date overrides are replaced wholesale, matching how the
// schedule editor submits them.
type Store interface {
	DoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error)
	IsClinicAdmin(ctx context.Context, clinicID, userID uuid.UUID) (bool, error)

	WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]schedule.WeeklyEntry, error)
	ReplaceWeeklySchedule(ctx context.Context, doctorID uuid.UUID, entries []schedule.WeeklyEntry) error

	// SupportsOverrides reports whether the override tier exists at all.
	// Deployments that never ran the override migration keep working on
	// the weekly tier alone.
	SupportsOverrides(ctx context.Context) bool
	OverrideForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*schedule.Override, error)
	FutureOverrides(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]StoredOverride, error)
	ReplaceFutureOverrides(ctx context.Context, doctorID uuid.UUID, from time.Time, overrides []schedule.Override) (int, error)
	DeleteOverride(ctx context.Context, doctorID, overrideID uuid.UUID) error
}

// InMemoryStore is a mutex-guarded directory for tests and local runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	doctors   map[uuid.UUID]*Doctor
	patients  map[uuid.UUID]*Patient
	clinics   map[uuid.UUID]*Clinic
	admins    map[uuid.UUID][]uuid.UUID
	weekly    map[uuid.UUID][]schedule.WeeklyEntry
	overrides map[uuid.UUID][]StoredOverride

	// overridesDisabled simulates a deployment without the override tier.
	overridesDisabled bool
}

// NewInMemoryStore creates an empty in-memory directory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		doctors:   make(map[uuid.UUID]*Doctor),
		patients:  make(map[uuid.UUID]*Patient),
		clinics:   make(map[uuid.UUID]*Clinic),
		admins:    make(map[uuid.UUID][]uuid.UUID),
		weekly:    make(map[uuid.UUID][]schedule.WeeklyEntry),
		overrides: make(map[uuid.UUID][]StoredOverride),
	}
}

// AddDoctor registers a doctor.
func (s *InMemoryStore) AddDoctor(d Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.ID] = &d
}

// AddPatient registers a patient.
func (s *InMemoryStore) AddPatient(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = &p
}

// AddClinic registers a clinic.
func (s *InMemoryStore) AddClinic(c Clinic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clinics[c.ID] = &c
}

// AddClinicAdmin grants a user admin rights over a clinic.
func (s *InMemoryStore) AddClinicAdmin(clinicID, userID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[clinicID] = append(s.admins[clinicID], userID)
}

// DisableOverrides makes the store behave like a deployment whose
// override table was never created.
func (s *InMemoryStore) DisableOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overridesDisabled = true
}

func (s *InMemoryStore) DoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *InMemoryStore) PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) ClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	copied := *c
	return &copied, nil
}

func (s *InMemoryStore) IsClinicAdmin(ctx context.Context, clinicID, userID uuid.UUID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.admins[clinicID] {
		if admin == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]schedule.WeeklyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]schedule.WeeklyEntry(nil), s.weekly[doctorID]...), nil
}

func (s *InMemoryStore) ReplaceWeeklySchedule(ctx context.Context, doctorID uuid.UUID, entries []schedule.WeeklyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.doctors[doctorID]; !ok {
		return ErrDoctorNotFound
	}
	s.weekly[doctorID] = append([]schedule.WeeklyEntry(nil), entries...)
	return nil
}

func (s *InMemoryStore) SupportsOverrides(ctx context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.overridesDisabled
}

func (s *InMemoryStore) OverrideForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*schedule.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.overridesDisabled {
		return nil, nil
	}
	for _, o := range s.overrides[doctorID] {
		if schedule.SameDate(o.Date, date) {
			copied := o.Override
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *InMemoryStore) FutureOverrides(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]StoredOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.overridesDisabled {
		return nil, nil
	}
	var out []StoredOverride
	for _, o := range s.overrides[doctorID] {
		if o.Date.Before(from) && !schedule.SameDate(o.Date, from) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *InMemoryStore) ReplaceFutureOverrides(ctx context.Context, doctorID uuid.UUID, from time.Time, overrides []schedule.Override) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overridesDisabled {
		return 0, nil
	}
	if _, ok := s.doctors[doctorID]; !ok {
		return 0, ErrDoctorNotFound
	}

	var kept []StoredOverride
	for _, o := range s.overrides[doctorID] {
		if o.Date.Before(from) && !schedule.SameDate(o.Date, from) {
			kept = append(kept, o)
		}
	}
	for _, o := range overrides {
		kept = append(kept, StoredOverride{ID: uuid.New(), Override: o})
	}
	s.overrides[doctorID] = kept
	return len(overrides), nil
}

func (s *InMemoryStore) DeleteOverride(ctx context.Context, doctorID, overrideID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overridesDisabled {
		return ErrOverrideNotFound
	}
	existing := s.overrides[doctorID]
	for i, o := range existing {
		if o.ID == overrideID {
			s.overrides[doctorID] = append(existing[:i:i], existing[i+1:]...)
			return nil
		}
	}
	return ErrOverrideNotFound
}

var _ Store = (*InMemoryStore)(nil)
