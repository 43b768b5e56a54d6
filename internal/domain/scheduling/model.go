package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Slot maps to the slots table: a doctor-defined bookable time window.
// The available flag is the single source of truth for bookability and is
// only flipped through Reserve/Release.
type Slot struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	EndTime   time.Time `db:"end_time" json:"end_time"`
	Available bool      `db:"available" json:"available"`
	VersionID int       `db:"version_id" json:"version_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Appointment statuses. Completed and canceled are terminal.
const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCanceled  = "canceled"
)

// CanTransition reports whether the status state machine permits from -> to.
func CanTransition(from, to string) bool {
	if from != StatusScheduled {
		return false
	}
	return to == StatusCompleted || to == StatusCanceled
}

// Appointment maps to the appointments table. It references patient, doctor,
// and slot; it owns none of them.
type Appointment struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	SlotID    uuid.UUID `db:"slot_id" json:"slot_id"`
	StartTime time.Time `db:"start_time" json:"start_time"`
	Status    string    `db:"status" json:"status"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
