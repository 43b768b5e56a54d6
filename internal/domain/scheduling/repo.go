package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SlotRepository interface {
	Create(ctx context.Context, s *Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	// ListAvailable returns available slots for the doctor within [from, to),
	// ordered by start time. Paging makes the sequence restartable.
	ListAvailable(ctx context.Context, doctorID uuid.UUID, from, to time.Time, limit, offset int) ([]*Slot, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Slot, int, error)
	// Reserve atomically flips the slot to unavailable. Exactly one of any
	// set of concurrent callers succeeds; losers get SlotUnavailable.
	Reserve(ctx context.Context, id uuid.UUID) error
	// Release flips a reserved slot back to available. Releasing a slot that
	// was never reserved is an InvalidTransition.
	Release(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// TransitionStatus moves the appointment from one status to another in a
	// single conditional update; it reports false when the row was not in the
	// expected source status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
}
