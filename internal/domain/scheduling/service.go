package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medifile/medifile/internal/platform/apperr"
	"github.com/medifile/medifile/internal/platform/auth"
)

// PatientDirectory resolves a patient record to its owning user. The clinical
// package provides the implementation.
type PatientDirectory interface {
	UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error)
}

// DoctorDirectory resolves a doctor record to its owning user. The provider
// package provides the implementation.
type DoctorDirectory interface {
	UserIDForDoctor(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, action string)
}

// TxRunner executes fn atomically. The database implementation wraps fn in a
// transaction; tests pass through.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn without a transaction. In-memory repositories are
// individually atomic so tests use this.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	slots    SlotRepository
	appts    AppointmentRepository
	patients PatientDirectory
	doctors  DoctorDirectory
	audit    AuditRecorder
	runTx    TxRunner
}

func NewService(slots SlotRepository, appts AppointmentRepository, patients PatientDirectory, doctors DoctorDirectory, audit AuditRecorder, runTx TxRunner) *Service {
	return &Service{slots: slots, appts: appts, patients: patients, doctors: doctors, audit: audit, runTx: runTx}
}

// -- Slot Allocator --

// CreateSlot opens a bookable window for a doctor. Doctors may only open
// slots for themselves.
func (s *Service) CreateSlot(ctx context.Context, sl *Slot) error {
	if sl.DoctorID == uuid.Nil {
		return apperr.E(apperr.Validation, "doctor_id is required")
	}
	if sl.StartTime.IsZero() || sl.EndTime.IsZero() {
		return apperr.E(apperr.Validation, "start_time and end_time are required")
	}
	if !sl.EndTime.After(sl.StartTime) {
		return apperr.E(apperr.Validation, "end_time must be after start_time")
	}

	ownerID, err := s.doctors.UserIDForDoctor(ctx, sl.DoctorID)
	if err != nil {
		return err
	}
	if auth.RoleFromContext(ctx) == auth.RoleDoctor && ownerID != auth.UserIDFromContext(ctx) {
		return apperr.E(apperr.Authorization, "doctors may only create their own slots")
	}

	if err := s.slots.Create(ctx, sl); err != nil {
		return err
	}
	s.audit.Record(ctx, "slot_create")
	return nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	return s.slots.GetByID(ctx, id)
}

// ListAvailable returns the doctor's open slots inside the window, ordered by
// start time. Callers page through it and may restart from any offset.
func (s *Service) ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]*Slot, int, error) {
	if doctorID == uuid.Nil {
		return nil, 0, apperr.E(apperr.Validation, "doctor_id is required")
	}
	if to.IsZero() {
		to = from.Add(30 * 24 * time.Hour)
	}
	if !to.After(from) {
		return nil, 0, apperr.E(apperr.Validation, "window end must be after window start")
	}
	return s.slots.ListAvailable(ctx, doctorID, from, to, limit, offset)
}

func (s *Service) ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Slot, int, error) {
	return s.slots.ListByDoctor(ctx, doctorID, limit, offset)
}

// DeleteSlot removes an open slot. Reserved slots are pinned by their
// appointment and cannot be deleted.
func (s *Service) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	sl, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sl.Available {
		return apperr.E(apperr.InvalidTransition, "slot %s is reserved and cannot be deleted", id)
	}
	ownerID, err := s.doctors.UserIDForDoctor(ctx, sl.DoctorID)
	if err != nil {
		return err
	}
	if auth.RoleFromContext(ctx) == auth.RoleDoctor && ownerID != auth.UserIDFromContext(ctx) {
		return apperr.E(apperr.Authorization, "doctors may only delete their own slots")
	}
	if err := s.slots.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "slot_delete")
	return nil
}

// -- Appointment Scheduler --

// Book reserves the slot and creates the appointment as one atomic unit:
// if either step fails the other is rolled back with it. A lost reservation
// race surfaces as SlotUnavailable; the caller retries against a fresh
// availability list.
func (s *Service) Book(ctx context.Context, patientID, slotID uuid.UUID, notes string) (*Appointment, error) {
	if patientID == uuid.Nil {
		return nil, apperr.E(apperr.Validation, "patient_id is required")
	}
	if slotID == uuid.Nil {
		return nil, apperr.E(apperr.Validation, "slot_id is required")
	}

	ownerID, err := s.patients.UserIDForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RolePatient && ownerID != auth.UserIDFromContext(ctx) {
		return nil, apperr.E(apperr.Authorization, "patients may only book their own appointments")
	}

	var appt *Appointment
	err = s.runTx(ctx, func(ctx context.Context) error {
		if err := s.slots.Reserve(ctx, slotID); err != nil {
			return err
		}
		sl, err := s.slots.GetByID(ctx, slotID)
		if err != nil {
			return err
		}
		appt = &Appointment{
			PatientID: patientID,
			DoctorID:  sl.DoctorID,
			SlotID:    sl.ID,
			StartTime: sl.StartTime,
			Status:    StatusScheduled,
			Notes:     notes,
		}
		return s.appts.Create(ctx, appt)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "appointment_book")
	return appt, nil
}

// Cancel moves a scheduled appointment to canceled and releases its slot so
// it can be booked again. Terminal appointments cannot be canceled.
func (s *Service) Cancel(ctx context.Context, appointmentID uuid.UUID) error {
	appt, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := s.authorizeParticipant(ctx, appt, "cancel"); err != nil {
		return err
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		moved, err := s.appts.TransitionStatus(ctx, appointmentID, StatusScheduled, StatusCanceled)
		if err != nil {
			return err
		}
		if !moved {
			return apperr.E(apperr.InvalidTransition, "appointment %s is %s and cannot be canceled", appointmentID, appt.Status)
		}
		return s.slots.Release(ctx, appt.SlotID)
	})
	if err != nil {
		return err
	}
	s.audit.Record(ctx, "appointment_cancel")
	return nil
}

// Complete moves a scheduled appointment to completed. The slot stays
// unavailable permanently: it is consumed by history, not returned to the
// pool. Only the treating doctor (or an admin) may complete.
func (s *Service) Complete(ctx context.Context, appointmentID uuid.UUID) error {
	appt, err := s.appts.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}

	role := auth.RoleFromContext(ctx)
	if role == auth.RoleDoctor {
		ownerID, err := s.doctors.UserIDForDoctor(ctx, appt.DoctorID)
		if err != nil {
			return err
		}
		if ownerID != auth.UserIDFromContext(ctx) {
			return apperr.E(apperr.Authorization, "doctors may only complete their own appointments")
		}
	} else if role != auth.RoleAdmin {
		return apperr.E(apperr.Authorization, "only the treating doctor may complete an appointment")
	}

	moved, err := s.appts.TransitionStatus(ctx, appointmentID, StatusScheduled, StatusCompleted)
	if err != nil {
		return err
	}
	if !moved {
		return apperr.E(apperr.InvalidTransition, "appointment %s is %s and cannot be completed", appointmentID, appt.Status)
	}
	s.audit.Record(ctx, "appointment_complete")
	return nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	appt, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeParticipant(ctx, appt, "view"); err != nil {
		return nil, err
	}
	return appt, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	if auth.RoleFromContext(ctx) == auth.RolePatient {
		ownerID, err := s.patients.UserIDForPatient(ctx, patientID)
		if err != nil {
			return nil, 0, err
		}
		if ownerID != auth.UserIDFromContext(ctx) {
			return nil, 0, apperr.E(apperr.Authorization, "patients may only list their own appointments")
		}
	}
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByDoctor(ctx, doctorID, limit, offset)
}

// authorizeParticipant allows the appointment's patient, its doctor, and
// staff roles through; other patients are rejected.
func (s *Service) authorizeParticipant(ctx context.Context, appt *Appointment, verb string) error {
	role := auth.RoleFromContext(ctx)
	userID := auth.UserIDFromContext(ctx)

	switch role {
	case auth.RoleAdmin, auth.RoleNurse:
		return nil
	case auth.RoleDoctor:
		ownerID, err := s.doctors.UserIDForDoctor(ctx, appt.DoctorID)
		if err != nil {
			return err
		}
		if ownerID != userID {
			return apperr.E(apperr.Authorization, "doctors may only %s their own appointments", verb)
		}
		return nil
	case auth.RolePatient:
		ownerID, err := s.patients.UserIDForPatient(ctx, appt.PatientID)
		if err != nil {
			return err
		}
		if ownerID != userID {
			return apperr.E(apperr.Authorization, "patients may only %s their own appointments", verb)
		}
		return nil
	default:
		return apperr.E(apperr.Authorization, "not permitted to %s appointments", verb)
	}
}
