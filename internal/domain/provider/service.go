package provider

import (
	"context"

	"github.com/google/uuid"

	"github.com/medifile/medifile/internal/domain/identity"
	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
)

// UserLookup resolves a user id to its identity record. The identity
// repository satisfies this.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, action string)
}

type Service struct {
	hospitals HospitalRepository
	doctors   DoctorRepository
	users     UserLookup
	audit     AuditRecorder
}

func NewService(hospitals HospitalRepository, doctors DoctorRepository, users UserLookup, audit AuditRecorder) *Service {
	return &Service{hospitals: hospitals, doctors: doctors, users: users, audit: audit}
}

// -- Hospital --

func (s *Service) CreateHospital(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return apperr.E(apperr.Validation, "hospital name is required")
	}
	if err := s.hospitals.Create(ctx, h); err != nil {
		return err
	}
	s.audit.Record(ctx, "hospital_create")
	return nil
}

func (s *Service) GetHospital(ctx context.Context, id uuid.UUID) (*Hospital, error) {
	return s.hospitals.GetByID(ctx, id)
}

func (s *Service) UpdateHospital(ctx context.Context, h *Hospital) error {
	if h.Name == "" {
		return apperr.E(apperr.Validation, "hospital name is required")
	}
	if err := s.hospitals.Update(ctx, h); err != nil {
		return err
	}
	s.audit.Record(ctx, "hospital_update")
	return nil
}

// DeleteHospital detaches employed doctors (hospital_id set to NULL by the
// schema) rather than cascading into provider records.
func (s *Service) DeleteHospital(ctx context.Context, id uuid.UUID) error {
	if err := s.hospitals.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "hospital_delete")
	return nil
}

func (s *Service) ListHospitals(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, limit, offset)
}

// -- Doctor --

func (s *Service) CreateDoctor(ctx context.Context, d *Doctor) error {
	if d.UserID == uuid.Nil {
		return apperr.E(apperr.Validation, "user_id is required")
	}
	if d.Specialization == "" {
		return apperr.E(apperr.Validation, "specialization is required")
	}
	if d.LicenseNumber == "" {
		return apperr.E(apperr.Validation, "license_number is required")
	}

	u, err := s.users.GetByID(ctx, d.UserID)
	if err != nil {
		return err
	}
	if u.Role != auth.RoleDoctor {
		return apperr.E(apperr.Validation, "user %s does not hold the doctor role", d.UserID)
	}
	if d.HospitalID != nil {
		if _, err := s.hospitals.GetByID(ctx, *d.HospitalID); err != nil {
			return err
		}
	}

	if err := s.doctors.Create(ctx, d); err != nil {
		return err
	}
	s.audit.Record(ctx, "doctor_create")
	return nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetDoctorByUser(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByUserID(ctx, userID)
}

// UserIDForDoctor resolves a doctor record to its owner, for ownership
// checks in other packages.
func (s *Service) UserIDForDoctor(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error) {
	d, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return uuid.Nil, err
	}
	return d.UserID, nil
}

// AssignHospital moves a doctor between hospitals; nil detaches.
func (s *Service) AssignHospital(ctx context.Context, doctorID uuid.UUID, hospitalID *uuid.UUID) error {
	if hospitalID != nil {
		if _, err := s.hospitals.GetByID(ctx, *hospitalID); err != nil {
			return err
		}
	}
	if err := s.doctors.SetHospital(ctx, doctorID, hospitalID); err != nil {
		return err
	}
	s.audit.Record(ctx, "doctor_assign_hospital")
	return nil
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) ListDoctorsByHospital(ctx context.Context, hospitalID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.ListByHospital(ctx, hospitalID, limit, offset)
}
