package provider

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/medifile/medifile/internal/domain/identity"
	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
)

// -- Mocks --

type mockHospitalRepo struct {
	hospitals map[uuid.UUID]*Hospital
}

func newMockHospitalRepo() *mockHospitalRepo {
	return &mockHospitalRepo{hospitals: make(map[uuid.UUID]*Hospital)}
}

func (m *mockHospitalRepo) Create(_ context.Context, h *Hospital) error {
	h.ID = uuid.New()
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockHospitalRepo) GetByID(_ context.Context, id uuid.UUID) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "hospital not found")
	}
	return h, nil
}

func (m *mockHospitalRepo) Update(_ context.Context, h *Hospital) error {
	if _, ok := m.hospitals[h.ID]; !ok {
		return apperr.E(apperr.NotFound, "hospital not found")
	}
	m.hospitals[h.ID] = h
	return nil
}

func (m *mockHospitalRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.hospitals, id)
	return nil
}

func (m *mockHospitalRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var result []*Hospital
	for _, h := range m.hospitals {
		result = append(result, h)
	}
	return result, len(result), nil
}

type mockDoctorRepo struct {
	doctors map[uuid.UUID]*Doctor
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[uuid.UUID]*Doctor)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	for _, existing := range m.doctors {
		if existing.LicenseNumber == d.LicenseNumber {
			return apperr.E(apperr.Conflict, "license number %s already registered", d.LicenseNumber)
		}
	}
	d.ID = uuid.New()
	m.doctors[d.ID] = d
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "doctor not found")
	}
	return d, nil
}

func (m *mockDoctorRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperr.E(apperr.NotFound, "doctor not found")
}

func (m *mockDoctorRepo) SetHospital(_ context.Context, id uuid.UUID, hospitalID *uuid.UUID) error {
	d, ok := m.doctors[id]
	if !ok {
		return apperr.E(apperr.NotFound, "doctor not found")
	}
	d.HospitalID = hospitalID
	return nil
}

func (m *mockDoctorRepo) ListByHospital(_ context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		if d.HospitalID != nil && *d.HospitalID == hospitalID {
			result = append(result, d)
		}
	}
	return result, len(result), nil
}

func (m *mockDoctorRepo) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	var result []*Doctor
	for _, d := range m.doctors {
		result = append(result, d)
	}
	return result, len(result), nil
}

type mockUserLookup struct {
	users map[uuid.UUID]*identity.User
}

func (m *mockUserLookup) GetByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.E(apperr.NotFound, "user not found")
	}
	return u, nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, string) {}

func newTestService() (*Service, *mockUserLookup) {
	users := &mockUserLookup{users: make(map[uuid.UUID]*identity.User)}
	svc := NewService(newMockHospitalRepo(), newMockDoctorRepo(), users, nopRecorder{})
	return svc, users
}

func doctorUser(users *mockUserLookup) uuid.UUID {
	id := uuid.New()
	users.users[id] = &identity.User{ID: id, Role: auth.RoleDoctor, Active: true}
	return id
}

// -- Tests --

func TestCreateHospital(t *testing.T) {
	svc, _ := newTestService()
	h := &Hospital{Name: "General", Address: "1 Main St"}
	if err := svc.CreateHospital(context.Background(), h); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ID == uuid.Nil {
		t.Error("expected id to be assigned")
	}
}

func TestCreateHospital_NameRequired(t *testing.T) {
	svc, _ := newTestService()
	err := svc.CreateHospital(context.Background(), &Hospital{})
	if !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected Validation, got %v", err)
	}
}

func TestCreateDoctor(t *testing.T) {
	svc, users := newTestService()
	d := &Doctor{UserID: doctorUser(users), Specialization: "cardiology", LicenseNumber: "LIC-1"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateDoctor_DuplicateLicense(t *testing.T) {
	svc, users := newTestService()
	d1 := &Doctor{UserID: doctorUser(users), Specialization: "cardiology", LicenseNumber: "LIC-1"}
	if err := svc.CreateDoctor(context.Background(), d1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d2 := &Doctor{UserID: doctorUser(users), Specialization: "oncology", LicenseNumber: "LIC-1"}
	err := svc.CreateDoctor(context.Background(), d2)
	if !apperr.Is(err, apperr.Conflict) {
		t.Errorf("expected Conflict, got %v", err)
	}
}

func TestCreateDoctor_WrongRole(t *testing.T) {
	svc, users := newTestService()
	id := uuid.New()
	users.users[id] = &identity.User{ID: id, Role: auth.RolePatient}
	err := svc.CreateDoctor(context.Background(), &Doctor{UserID: id, Specialization: "x", LicenseNumber: "L"})
	if !apperr.Is(err, apperr.Validation) {
		t.Errorf("expected Validation, got %v", err)
	}
}

func TestCreateDoctor_UnknownHospital(t *testing.T) {
	svc, users := newTestService()
	hid := uuid.New()
	d := &Doctor{UserID: doctorUser(users), Specialization: "x", LicenseNumber: "L", HospitalID: &hid}
	err := svc.CreateDoctor(context.Background(), d)
	if !apperr.Is(err, apperr.NotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestCreateDoctor_UnaffiliatedAllowed(t *testing.T) {
	svc, users := newTestService()
	d := &Doctor{UserID: doctorUser(users), Specialization: "gp", LicenseNumber: "LIC-2"}
	if err := svc.CreateDoctor(context.Background(), d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.HospitalID != nil {
		t.Error("expected no hospital affiliation")
	}
}

func TestAssignHospital(t *testing.T) {
	svc, users := newTestService()
	h := &Hospital{Name: "General", Address: "1 Main St"}
	svc.CreateHospital(context.Background(), h)
	d := &Doctor{UserID: doctorUser(users), Specialization: "gp", LicenseNumber: "LIC-3"}
	svc.CreateDoctor(context.Background(), d)

	if err := svc.AssignHospital(context.Background(), d.ID, &h.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetched, _ := svc.GetDoctor(context.Background(), d.ID)
	if fetched.HospitalID == nil || *fetched.HospitalID != h.ID {
		t.Error("expected doctor to be assigned to hospital")
	}

	// Detach.
	if err := svc.AssignHospital(context.Background(), d.ID, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fetched, _ = svc.GetDoctor(context.Background(), d.ID)
	if fetched.HospitalID != nil {
		t.Error("expected doctor to be detached")
	}
}
