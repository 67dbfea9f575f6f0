package viewing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a viewing appointment. It is never empty
// on a persisted row.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// ParseStatus converts a stored or requested value into a Status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("invalid appointment status: %q", s)
}

// CanTransitionTo reports whether next is reachable from s.
// pending <-> confirmed, any live state -> cancelled, nothing leaves cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusPending || next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed:
		return next == StatusPending || next == StatusCancelled
	}
	return false
}

// Appointment maps to the viewing_appointment table.
type Appointment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	PropertyID    uuid.UUID `db:"property_id" json:"property_id"`
	TenantID      string    `db:"tenant_id" json:"tenant_id"`
	LessorID      string    `db:"lessor_id" json:"lessor_id"`
	PreferredDate string    `db:"preferred_date" json:"preferred_date"`
	PreferredTime string    `db:"preferred_time" json:"preferred_time"`
	Status        Status    `db:"status" json:"status"`
	TenantNotes   *string   `db:"tenant_notes" json:"tenant_notes,omitempty"`
	LessorNotes   *string   `db:"lessor_notes" json:"lessor_notes,omitempty"`
	Message       *string   `db:"message" json:"message,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Occupies reports whether a holds its slot exclusively.
func (a *Appointment) Occupies() bool {
	return a.Status == StatusConfirmed
}

// RescheduleRequest carries the new slot chosen by the tenant.
type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
	Note string `json:"note"`
}

// NewViewingRequest is a tenant's request to view a property.
type NewViewingRequest struct {
	PropertyID uuid.UUID `json:"property_id"`
	TenantID   string    `json:"-"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Message    string    `json:"message"`
}

// Notes selects which annotation columns a status change writes. Nil fields
// are left untouched.
type Notes struct {
	Tenant *string
	Lessor *string
}

// MutationResult is reported by every appointment mutation, including failed
// ones, so callers always have a message to show.
type MutationResult struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
