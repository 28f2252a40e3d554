package appointments

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/scheduler/pkg/logging"
)

type stubDirectory struct {
	patients map[uuid.UUID]*Patient
	doctors  map[uuid.UUID]*DoctorRef
	clinics  map[uuid.UUID]*ClinicRef
	admins   map[uuid.UUID][]uuid.UUID
}

func (d *stubDirectory) PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := d.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (d *stubDirectory) DoctorRefByID(ctx context.Context, id uuid.UUID) (*DoctorRef, error) {
	doc, ok := d.doctors[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return doc, nil
}

func (d *stubDirectory) ClinicRefByID(ctx context.Context, id uuid.UUID) (*ClinicRef, error) {
	c, ok := d.clinics[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return c, nil
}

func (d *stubDirectory) IsClinicAdmin(ctx context.Context, clinicID, userID uuid.UUID) (bool, error) {
	for _, admin := range d.admins[clinicID] {
		if admin == userID {
			return true, nil
		}
	}
	return false, nil
}

type captureDispatcher struct {
	mu   sync.Mutex
	sent []Notification
}

func (c *captureDispatcher) Dispatch(ctx context.Context, n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureDispatcher) messages() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.sent...)
}

type fakeVault struct {
	saved map[uuid.UUID]string
	live  bool
}

func (v *fakeVault) Save(ctx context.Context, id uuid.UUID, code string) error {
	if v.saved == nil {
		v.saved = make(map[uuid.UUID]string)
	}
	v.saved[id] = code
	return nil
}

func (v *fakeVault) Live(ctx context.Context, id uuid.UUID) (bool, error) {
	return v.live, nil
}

type fixture struct {
	svc        *Service
	store      *InMemoryStore
	dispatcher *captureDispatcher
	patientID  uuid.UUID
	userID     uuid.UUID
	doctorID   uuid.UUID
	clinicID   uuid.UUID
	adminID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      NewInMemoryStore(),
		dispatcher: &captureDispatcher{},
		patientID:  uuid.New(),
		userID:     uuid.New(),
		doctorID:   uuid.New(),
		clinicID:   uuid.New(),
		adminID:    uuid.New(),
	}
	dir := &stubDirectory{
		patients: map[uuid.UUID]*Patient{
			f.patientID: {ID: f.patientID, UserID: f.userID, FirstName: "Ana", LastName: "Pop", Phone: "+40700000001"},
		},
		doctors: map[uuid.UUID]*DoctorRef{
			f.doctorID: {ID: f.doctorID, FirstName: "Ion", LastName: "Ionescu"},
		},
		clinics: map[uuid.UUID]*ClinicRef{
			f.clinicID: {ID: f.clinicID, Name: "DentaPlus"},
		},
		admins: map[uuid.UUID][]uuid.UUID{
			f.clinicID: {f.adminID},
		},
	}
	f.svc = NewService(f.store, dir, logging.Default()).WithDispatcher(f.dispatcher)
	return f
}

func (f *fixture) createRequest(at time.Time) CreateRequest {
	return CreateRequest{
		PatientID: f.patientID,
		DoctorID:  f.doctorID,
		ClinicID:  f.clinicID,
		DateTime:  at,
	}
}

var slotTime = time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)

func TestCreateSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	assert.Equal(t, StatusPending, appt.Status)
	assert.False(t, appt.Confirmed)
	assert.Equal(t, DefaultDurationMinutes, appt.Duration)
	assert.Len(t, appt.SMSCode, 6)

	msgs := f.dispatcher.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, appt.ID, msgs[0].AppointmentID)
	assert.Contains(t, msgs[0].Body, appt.SMSCode)
	assert.Contains(t, msgs[0].Body, "Valid for 10 minutes")
}

func TestCreatePatientNotFound(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(slotTime)
	req.PatientID = uuid.New()

	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.Empty(t, f.dispatcher.messages())
}

func TestCreateConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.createRequest(slotTime))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different instant for the same doctor stays bookable.
	_, err = f.svc.Create(ctx, f.createRequest(slotTime.Add(30*time.Minute)))
	assert.NoError(t, err)
}

func TestCreateConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(ctx, f.createRequest(slotTime))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var succeeded, conflicted int
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case err == ErrSlotTaken:
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one booking wins the slot")
	assert.Equal(t, attempts-1, conflicted)
}

func TestConfirmSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	confirmed, err := f.svc.Confirm(ctx, appt.ID, appt.SMSCode)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.Confirmed)

	msgs := f.dispatcher.messages()
	require.Len(t, msgs, 2)
	summary := msgs[1].Body
	assert.Contains(t, summary, "DentaPlus")
	assert.Contains(t, summary, "Dr. Ionescu")
	assert.Contains(t, summary, "02.06.2025")
	assert.Contains(t, summary, "09:30")
}

func TestConfirmIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, appt.ID, appt.SMSCode)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, appt.ID, appt.SMSCode)
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)
}

func TestConfirmInvalidCodeLeavesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, appt.ID, "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)

	current, err := f.svc.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, current.Status)
	assert.False(t, current.Confirmed)
}

func TestConfirmNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Confirm(context.Background(), uuid.New(), "123456")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestConfirmExpiredCode(t *testing.T) {
	f := newFixture(t)
	vault := &fakeVault{live: true}
	f.svc.WithCodeVault(vault)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	assert.Equal(t, appt.SMSCode, vault.saved[appt.ID])

	vault.live = false
	_, err = f.svc.Confirm(ctx, appt.ID, appt.SMSCode)
	assert.ErrorIs(t, err, ErrCodeExpired)
}

func TestConfirmCancelledAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, appt.ID, f.userID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(ctx, appt.ID, appt.SMSCode)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, appt.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// The owning patient may cancel.
	cancelled, err := f.svc.Cancel(ctx, appt.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
}

func TestCancelConfirmedByClinicAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	_, err = f.svc.Confirm(ctx, appt.ID, appt.SMSCode)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, appt.ID, f.adminID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	msgs := f.dispatcher.messages()
	assert.Contains(t, msgs[len(msgs)-1].Body, "has been cancelled")
}

func TestCancelledSlotBecomesBookableAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, appt.ID, f.userID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.createRequest(slotTime))
	assert.NoError(t, err, "a cancelled appointment must not block its slot")

	instants, err := f.store.OccupiedInstants(ctx, f.doctorID, slotTime.Add(-time.Hour), slotTime.Add(time.Hour), ActiveStatuses)
	require.NoError(t, err)
	assert.Len(t, instants, 1, "only the new active appointment occupies the instant")
}

func TestCancelIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, appt.ID, f.userID)
	require.NoError(t, err)

	again, err := f.svc.Cancel(ctx, appt.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
}

func TestRescheduleReentersConflictCheck(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, f.createRequest(slotTime.Add(30*time.Minute)))
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, second.ID, first.DateTime, f.userID)
	assert.ErrorIs(t, err, ErrSlotTaken)

	moved, err := f.svc.Reschedule(ctx, second.ID, slotTime.Add(time.Hour), f.userID)
	require.NoError(t, err)
	assert.True(t, moved.DateTime.Equal(slotTime.Add(time.Hour)))
}

func TestRescheduleAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, appt.ID, slotTime.Add(time.Hour), uuid.New())
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestRescheduleCancelledFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, appt.ID, f.userID)
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, appt.ID, slotTime.Add(time.Hour), f.userID)
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestUpdateNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appt, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)

	updated, err := f.svc.UpdateNotes(ctx, appt.ID, "bring previous x-rays", f.adminID)
	require.NoError(t, err)
	assert.Equal(t, "bring previous x-rays", updated.Notes)
	assert.True(t, updated.DateTime.Equal(appt.DateTime), "notes patch cannot move the appointment")

	_, err = f.svc.UpdateNotes(ctx, appt.ID, "nope", uuid.New())
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestClinicCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.createRequest(slotTime))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.createRequest(slotTime.Add(time.Hour)))
	require.NoError(t, err)

	from := slotTime.Add(-time.Hour)
	to := slotTime.Add(2 * time.Hour)

	appts, err := f.svc.ClinicCalendar(ctx, f.clinicID, from, to, f.adminID)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.True(t, appts[0].DateTime.Before(appts[1].DateTime), "calendar is ordered ascending")

	_, err = f.svc.ClinicCalendar(ctx, f.clinicID, from, to, f.userID)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}
