package provider

import (
	"time"

	"github.com/google/uuid"
)

// Hospital maps to the hospitals table.
type Hospital struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Address       string    `db:"address" json:"address"`
	ContactNumber *string   `db:"contact_number" json:"contact_number,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Doctor maps to the doctors table. A doctor may be unaffiliated, in which
// case HospitalID is nil.
type Doctor struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	Specialization string     `db:"specialization" json:"specialization"`
	LicenseNumber  string     `db:"license_number" json:"license_number"`
	HospitalID     *uuid.UUID `db:"hospital_id" json:"hospital_id,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}
