package viewing

import (
	"context"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	// Create inserts a and fills ID, LessorID and timestamps. The lessor is
	// taken from the property row; ErrPropertyNotFound if there is none.
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// ExistsConfirmedAt reports whether an appointment other than excludeID
	// is confirmed for the property at date and time.
	ExistsConfirmedAt(ctx context.Context, propertyID, excludeID uuid.UUID, date, tm string) (bool, error)
	ConfirmedTimes(ctx context.Context, propertyID uuid.UUID, date string) ([]string, error)
	// UpdateSchedule moves a live appointment to a new slot and resets it to
	// pending. ErrAppointmentCancelled if the row is cancelled.
	UpdateSchedule(ctx context.Context, id uuid.UUID, date, tm string, tenantNotes *string) (*Appointment, error)
	// UpdateStatus sets status and any non-nil notes. ErrSlotConflict if the
	// change would confirm a second appointment in the same slot.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes Notes) (*Appointment, error)
	ListByTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Appointment, int, error)
	ListByLessor(ctx context.Context, lessorID string, limit, offset int) ([]*Appointment, int, error)
}

// Transactor runs fn inside a single database transaction. Repository calls
// made with the ctx passed to fn join that transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
