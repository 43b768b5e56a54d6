package scheduling

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
)

// -- Mocks --

type mockSlotRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]*Slot
}

func newMockSlotRepo() *mockSlotRepo {
	return &mockSlotRepo{slots: make(map[uuid.UUID]*Slot)}
}

func (m *mockSlotRepo) Create(_ context.Context, s *Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.slots {
		if existing.DoctorID == s.DoctorID && existing.StartTime.Equal(s.StartTime) && existing.EndTime.Equal(s.EndTime) {
			return apperr.E(apperr.Conflict, "slot already exists for this window")
		}
	}
	s.ID = uuid.New()
	s.Available = true
	s.VersionID = 1
	m.slots[s.ID] = s
	return nil
}

func (m *mockSlotRepo) GetByID(_ context.Context, id uuid.UUID) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "slot not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockSlotRepo) ListAvailable(_ context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]*Slot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID && s.Available && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	total := len(result)
	if offset >= len(result) {
		return nil, total, nil
	}
	result = result[offset:]
	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, total, nil
}

func (m *mockSlotRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Slot, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Slot
	for _, s := range m.slots {
		if s.DoctorID == doctorID {
			result = append(result, s)
		}
	}
	return result, len(result), nil
}

// Reserve mirrors the conditional update the real repository issues: the
// check and the flip happen under one lock so concurrent callers serialize.
func (m *mockSlotRepo) Reserve(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.E(apperr.NotFound, "slot not found")
	}
	if !s.Available {
		return apperr.E(apperr.SlotUnavailable, "slot %s is no longer available", id)
	}
	s.Available = false
	s.VersionID++
	return nil
}

func (m *mockSlotRepo) Release(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return apperr.E(apperr.NotFound, "slot not found")
	}
	if s.Available {
		return apperr.E(apperr.InvalidTransition, "slot %s is not reserved", id)
	}
	s.Available = true
	s.VersionID++
	return nil
}

func (m *mockSlotRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, id)
	return nil
}

type mockAppointmentRepo struct {
	mu    sync.Mutex
	appts map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.appts[a.ID] = a
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return false, apperr.E(apperr.NotFound, "appointment not found")
	}
	if a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (m *mockAppointmentRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockAppointmentRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

type mockDirectory struct {
	owners map[uuid.UUID]uuid.UUID
}

func (m *mockDirectory) UserIDForPatient(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	u, ok := m.owners[id]
	if !ok {
		return uuid.Nil, apperr.E(apperr.NotFound, "patient not found")
	}
	return u, nil
}

func (m *mockDirectory) UserIDForDoctor(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	u, ok := m.owners[id]
	if !ok {
		return uuid.Nil, apperr.E(apperr.NotFound, "doctor not found")
	}
	return u, nil
}

type captureRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (r *captureRecorder) Record(_ context.Context, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

// -- Fixture --

type fixture struct {
	svc      *Service
	slots    *mockSlotRepo
	appts    *mockAppointmentRepo
	audit    *captureRecorder
	doctorID uuid.UUID
	doctorU  uuid.UUID
	patID    uuid.UUID
	patU     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		slots:    newMockSlotRepo(),
		appts:    newMockAppointmentRepo(),
		audit:    &captureRecorder{},
		doctorID: uuid.New(),
		doctorU:  uuid.New(),
		patID:    uuid.New(),
		patU:     uuid.New(),
	}
	dir := &mockDirectory{owners: map[uuid.UUID]uuid.UUID{
		f.doctorID: f.doctorU,
		f.patID:    f.patU,
	}}
	f.svc = NewService(f.slots, f.appts, dir, dir, f.audit, PassthroughTx)
	return f
}

func (f *fixture) asDoctor() context.Context {
	return auth.WithActor(context.Background(), f.doctorU, auth.RoleDoctor)
}

func (f *fixture) asPatient() context.Context {
	return auth.WithActor(context.Background(), f.patU, auth.RolePatient)
}

func (f *fixture) asAdmin() context.Context {
	return auth.WithActor(context.Background(), uuid.New(), auth.RoleAdmin)
}

func (f *fixture) openSlot(t *testing.T, start time.Time) *Slot {
	t.Helper()
	sl := &Slot{DoctorID: f.doctorID, StartTime: start, EndTime: start.Add(30 * time.Minute)}
	if err := f.svc.CreateSlot(f.asDoctor(), sl); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	return sl
}

// -- Slot tests --

func TestCreateSlotRejectsInvertedWindow(t *testing.T) {
	f := newFixture(t)
	start := time.Now().Add(time.Hour)
	sl := &Slot{DoctorID: f.doctorID, StartTime: start, EndTime: start.Add(-time.Minute)}
	err := f.svc.CreateSlot(f.asDoctor(), sl)
	if !apperr.Is(err, apperr.Validation) {
		t.Fatalf("want Validation, got %v", err)
	}

	sl = &Slot{DoctorID: f.doctorID, StartTime: start, EndTime: start}
	if err := f.svc.CreateSlot(f.asDoctor(), sl); !apperr.Is(err, apperr.Validation) {
		t.Fatalf("zero-length window: want Validation, got %v", err)
	}
}

func TestCreateSlotForAnotherDoctorForbidden(t *testing.T) {
	f := newFixture(t)
	otherDoctor := uuid.New()
	dir := &mockDirectory{owners: map[uuid.UUID]uuid.UUID{otherDoctor: uuid.New()}}
	f.svc = NewService(f.slots, f.appts, dir, dir, f.audit, PassthroughTx)

	start := time.Now().Add(time.Hour)
	sl := &Slot{DoctorID: otherDoctor, StartTime: start, EndTime: start.Add(30 * time.Minute)}
	err := f.svc.CreateSlot(f.asDoctor(), sl)
	if !apperr.Is(err, apperr.Authorization) {
		t.Fatalf("want Authorization, got %v", err)
	}
}

func TestListAvailableExcludesReserved(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	first := f.openSlot(t, now.Add(time.Hour))
	f.openSlot(t, now.Add(2*time.Hour))

	if _, err := f.svc.Book(f.asPatient(), f.patID, first.ID, ""); err != nil {
		t.Fatalf("Book: %v", err)
	}

	items, total, err := f.svc.ListAvailable(f.asPatient(), f.doctorID, now, time.Time{}, 20, 0)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("want 1 open slot, got total=%d len=%d", total, len(items))
	}
	if items[0].ID == first.ID {
		t.Fatal("reserved slot still listed as available")
	}
}

func TestDeleteReservedSlotRejected(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	if _, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, ""); err != nil {
		t.Fatalf("Book: %v", err)
	}
	err := f.svc.DeleteSlot(f.asDoctor(), sl.ID)
	if !apperr.Is(err, apperr.InvalidTransition) {
		t.Fatalf("want InvalidTransition, got %v", err)
	}
}

// -- Booking tests --

func TestBookReservesSlotAndBumpsVersion(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))

	appt, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "first visit")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Fatalf("status = %q, want %q", appt.Status, StatusScheduled)
	}
	if appt.DoctorID != f.doctorID || appt.SlotID != sl.ID {
		t.Fatal("appointment not linked to slot and doctor")
	}
	if !appt.StartTime.Equal(sl.StartTime) {
		t.Fatal("appointment start time not copied from slot")
	}

	got, err := f.slots.GetByID(context.Background(), sl.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Available {
		t.Fatal("slot still available after booking")
	}
	if got.VersionID != 2 {
		t.Fatalf("version = %d, want 2", got.VersionID)
	}
}

func TestBookTakenSlotReturnsSlotUnavailable(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	if _, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, ""); err != nil {
		t.Fatalf("first Book: %v", err)
	}
	_, err := f.svc.Book(f.asAdmin(), f.patID, sl.ID, "")
	if !apperr.Is(err, apperr.SlotUnavailable) {
		t.Fatalf("want SlotUnavailable, got %v", err)
	}
}

func TestConcurrentBookExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))

	const callers = 16
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(f.asAdmin(), f.patID, sl.ID, "")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var won, lost int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case apperr.Is(err, apperr.SlotUnavailable):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != callers-1 {
		t.Fatalf("won=%d lost=%d, want exactly one winner", won, lost)
	}
}

func TestBookForAnotherPatientForbidden(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))

	stranger := auth.WithActor(context.Background(), uuid.New(), auth.RolePatient)
	_, err := f.svc.Book(stranger, f.patID, sl.ID, "")
	if !apperr.Is(err, apperr.Authorization) {
		t.Fatalf("want Authorization, got %v", err)
	}

	got, err := f.slots.GetByID(context.Background(), sl.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Available {
		t.Fatal("slot reserved despite rejected booking")
	}
}

func TestBookUnknownSlot(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Book(f.asPatient(), f.patID, uuid.New(), "")
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("want NotFound, got %v", err)
	}
}

// -- Lifecycle tests --

func TestCancelReleasesSlotForRebooking(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	appt, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := f.svc.Cancel(f.asPatient(), appt.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	got, err := f.svc.GetAppointment(f.asPatient(), appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment: %v", err)
	}
	if got.Status != StatusCanceled {
		t.Fatalf("status = %q, want %q", got.Status, StatusCanceled)
	}

	// The freed slot is bookable again.
	if _, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "retry"); err != nil {
		t.Fatalf("rebook after cancel: %v", err)
	}
}

func TestCompleteConsumesSlot(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	appt, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	if err := f.svc.Complete(f.asDoctor(), appt.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, err := f.slots.GetByID(context.Background(), sl.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Available {
		t.Fatal("completed appointment returned its slot to the pool")
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	appt, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if err := f.svc.Complete(f.asDoctor(), appt.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if err := f.svc.Cancel(f.asPatient(), appt.ID); !apperr.Is(err, apperr.InvalidTransition) {
		t.Fatalf("cancel completed: want InvalidTransition, got %v", err)
	}
	if err := f.svc.Complete(f.asDoctor(), appt.ID); !apperr.Is(err, apperr.InvalidTransition) {
		t.Fatalf("complete twice: want InvalidTransition, got %v", err)
	}
}

func TestCompleteByOtherDoctorForbidden(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	appt, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	stranger := auth.WithActor(context.Background(), uuid.New(), auth.RoleDoctor)
	if err := f.svc.Complete(stranger, appt.ID); !apperr.Is(err, apperr.Authorization) {
		t.Fatalf("want Authorization, got %v", err)
	}
	if err := f.svc.Complete(f.asPatient(), appt.ID); !apperr.Is(err, apperr.Authorization) {
		t.Fatalf("patient complete: want Authorization, got %v", err)
	}
}

func TestGetAppointmentHidesOtherPatients(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	appt, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, "")
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	stranger := auth.WithActor(context.Background(), uuid.New(), auth.RolePatient)
	if _, err := f.svc.GetAppointment(stranger, appt.ID); !apperr.Is(err, apperr.Authorization) {
		t.Fatalf("want Authorization, got %v", err)
	}
}

func TestStatusMachine(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusScheduled, StatusCompleted, true},
		{StatusScheduled, StatusCanceled, true},
		{StatusCompleted, StatusCanceled, false},
		{StatusCanceled, StatusScheduled, false},
		{StatusCompleted, StatusScheduled, false},
		{StatusScheduled, StatusScheduled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%q, %q) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestBookRecordsAudit(t *testing.T) {
	f := newFixture(t)
	sl := f.openSlot(t, time.Now().Add(time.Hour))
	if _, err := f.svc.Book(f.asPatient(), f.patID, sl.ID, ""); err != nil {
		t.Fatalf("Book: %v", err)
	}
	f.audit.mu.Lock()
	defer f.audit.mu.Unlock()
	var found bool
	for _, a := range f.audit.actions {
		if a == "appointment_book" {
			found = true
		}
	}
	if !found {
		t.Fatalf("audit actions %v missing appointment_book", f.audit.actions)
	}
}
