package clinical

import (
	"context"
	"time"

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

// DoctorLookup resolves a doctor record to its owning user. The provider
// service satisfies this.
type DoctorLookup interface {
	UserIDForDoctor(ctx context.Context, doctorID uuid.UUID) (uuid.UUID, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, action string)
}

// TxRunner executes fn atomically; see the scheduling package for the
// database-backed implementation.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	patients      PatientRepository
	histories     MedicalHistoryRepository
	prescriptions PrescriptionRepository
	medications   MedicationRepository
	users         UserLookup
	doctors       DoctorLookup
	audit         AuditRecorder
	runTx         TxRunner
}

func NewService(
	patients PatientRepository,
	histories MedicalHistoryRepository,
	prescriptions PrescriptionRepository,
	medications MedicationRepository,
	users UserLookup,
	doctors DoctorLookup,
	audit AuditRecorder,
	runTx TxRunner,
) *Service {
	return &Service{
		patients:      patients,
		histories:     histories,
		prescriptions: prescriptions,
		medications:   medications,
		users:         users,
		doctors:       doctors,
		audit:         audit,
		runTx:         runTx,
	}
}

// -- Patient --

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if p.UserID == uuid.Nil {
		return apperr.E(apperr.Validation, "user_id is required")
	}
	u, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return err
	}
	if u.Role != auth.RolePatient {
		return apperr.E(apperr.Validation, "user %s does not hold the patient role", p.UserID)
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	s.audit.Record(ctx, "patient_create")
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizePatientAccess(ctx, p, "view"); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	// The user link is fixed at creation.
	p.UserID = existing.UserID
	if err := s.patients.Update(ctx, p); err != nil {
		return err
	}
	s.audit.Record(ctx, "patient_update")
	return nil
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// UserIDForPatient resolves a patient record to its owner, for ownership
// checks in other packages.
func (s *Service) UserIDForPatient(ctx context.Context, patientID uuid.UUID) (uuid.UUID, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.UserID, nil
}

// -- Medical history --

// AddMedicalHistory appends an entry to the patient's record. The record is
// append-only; there is no edit or delete path.
func (s *Service) AddMedicalHistory(ctx context.Context, h *MedicalHistory) error {
	if h.PatientID == uuid.Nil {
		return apperr.E(apperr.Validation, "patient_id is required")
	}
	if h.Diagnosis == "" {
		return apperr.E(apperr.Validation, "diagnosis is required")
	}
	if _, err := s.patients.GetByID(ctx, h.PatientID); err != nil {
		return err
	}
	if h.DateRecorded.IsZero() {
		h.DateRecorded = time.Now().UTC()
	}
	if err := s.histories.Create(ctx, h); err != nil {
		return err
	}
	s.audit.Record(ctx, "medical_history_add")
	return nil
}

func (s *Service) ListMedicalHistory(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*MedicalHistory, int, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authorizePatientAccess(ctx, p, "view history for"); err != nil {
		return nil, 0, err
	}
	return s.histories.ListByPatient(ctx, patientID, limit, offset)
}

// -- Prescriptions --

// IssuePrescription creates the prescription and every item as one atomic
// unit. A rejected item leaves nothing persisted. Issued prescriptions are
// never edited; corrections are reissued.
func (s *Service) IssuePrescription(ctx context.Context, p *Prescription) (*Prescription, error) {
	if p.PatientID == uuid.Nil {
		return nil, apperr.E(apperr.Validation, "patient_id is required")
	}
	if p.DoctorID == uuid.Nil {
		return nil, apperr.E(apperr.Validation, "doctor_id is required")
	}
	if len(p.Items) == 0 {
		return nil, apperr.E(apperr.Validation, "a prescription needs at least one item")
	}
	for i, item := range p.Items {
		if item.MedicationName == "" {
			return nil, apperr.E(apperr.Validation, "item %d: medication_name is required", i)
		}
		if item.Dosage == "" {
			return nil, apperr.E(apperr.Validation, "item %d: dosage is required", i)
		}
		if item.Frequency == "" {
			return nil, apperr.E(apperr.Validation, "item %d: frequency is required", i)
		}
		if item.Duration == "" {
			return nil, apperr.E(apperr.Validation, "item %d: duration is required", i)
		}
	}

	if _, err := s.patients.GetByID(ctx, p.PatientID); err != nil {
		return nil, err
	}
	ownerID, err := s.doctors.UserIDForDoctor(ctx, p.DoctorID)
	if err != nil {
		return nil, err
	}
	if auth.RoleFromContext(ctx) == auth.RoleDoctor && ownerID != auth.UserIDFromContext(ctx) {
		return nil, apperr.E(apperr.Authorization, "doctors may only issue prescriptions in their own name")
	}

	if p.IssueDate.IsZero() {
		p.IssueDate = time.Now().UTC()
	}
	if p.ExpiryDate.IsZero() {
		p.ExpiryDate = p.IssueDate.Add(30 * 24 * time.Hour)
	}
	if !p.ExpiryDate.After(p.IssueDate) {
		return nil, apperr.E(apperr.Validation, "expiry_date must be after issue_date")
	}

	err = s.runTx(ctx, func(ctx context.Context) error {
		return s.prescriptions.Create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "prescription_issue")
	return p, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pat, err := s.patients.GetByID(ctx, p.PatientID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizePatientAccess(ctx, pat, "view prescriptions for"); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	if err := s.authorizePatientAccess(ctx, p, "view prescriptions for"); err != nil {
		return nil, 0, err
	}
	return s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
}

// -- Medication catalog --

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return apperr.E(apperr.Validation, "medication name is required")
	}
	if err := s.medications.Create(ctx, m); err != nil {
		return err
	}
	s.audit.Record(ctx, "medication_create")
	return nil
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return apperr.E(apperr.Validation, "medication name is required")
	}
	if err := s.medications.Update(ctx, m); err != nil {
		return err
	}
	s.audit.Record(ctx, "medication_update")
	return nil
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	if err := s.medications.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "medication_delete")
	return nil
}

func (s *Service) ListMedications(ctx context.Context, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, limit, offset)
}

// authorizePatientAccess lets staff and the patient's own user through.
// Other patients never see the record.
func (s *Service) authorizePatientAccess(ctx context.Context, p *Patient, verb string) error {
	switch auth.RoleFromContext(ctx) {
	case auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse:
		return nil
	case auth.RolePatient:
		if p.UserID != auth.UserIDFromContext(ctx) {
			return apperr.E(apperr.Authorization, "patients may only %s their own record", verb)
		}
		return nil
	default:
		return apperr.E(apperr.Authorization, "not permitted to %s patient records", verb)
	}
}
