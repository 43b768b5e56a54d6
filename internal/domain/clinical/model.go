package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Patient extends a user with clinical attributes. One patient record per
// user.
type Patient struct {
	ID                uuid.UUID `db:"id" json:"id"`
	UserID            uuid.UUID `db:"user_id" json:"user_id"`
	BloodType         string    `db:"blood_type" json:"blood_type"`
	Allergies         string    `db:"allergies" json:"allergies"`
	HeightCm          float64   `db:"height_cm" json:"height_cm"`
	WeightKg          float64   `db:"weight_kg" json:"weight_kg"`
	InsuranceProvider string    `db:"insurance_provider" json:"insurance_provider"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// MedicalHistory is an append-only entry in a patient's record. DoctorID is
// nullable: the entry outlives the doctor who wrote it.
type MedicalHistory struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	PatientID    uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID     *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Diagnosis    string     `db:"diagnosis" json:"diagnosis"`
	Treatment    string     `db:"treatment" json:"treatment"`
	DateRecorded time.Time  `db:"date_recorded" json:"date_recorded"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Medication is a catalog entry prescription items refer to by name.
type Medication struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Manufacturer string    `db:"manufacturer" json:"manufacturer"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Prescription is immutable once issued. Corrections are made by issuing a
// new prescription, never by editing an existing one.
type Prescription struct {
	ID         uuid.UUID           `db:"id" json:"id"`
	PatientID  uuid.UUID           `db:"patient_id" json:"patient_id"`
	DoctorID   uuid.UUID           `db:"doctor_id" json:"doctor_id"`
	IssueDate  time.Time           `db:"issue_date" json:"issue_date"`
	ExpiryDate time.Time           `db:"expiry_date" json:"expiry_date"`
	Notes      string              `db:"notes" json:"notes"`
	Items      []*PrescriptionItem `json:"items"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
}

type PrescriptionItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PrescriptionID uuid.UUID `db:"prescription_id" json:"prescription_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Dosage         string    `db:"dosage" json:"dosage"`
	Frequency      string    `db:"frequency" json:"frequency"`
	Duration       string    `db:"duration" json:"duration"`
}
