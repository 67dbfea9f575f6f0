package viewing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lettings/viewings/internal/platform/queue"
)

type Service struct {
	sched    *Scheduler
	appts    AppointmentRepository
	tx       Transactor
	notifier Notifier
	logger   zerolog.Logger
}

func NewService(sched *Scheduler, appts AppointmentRepository, tx Transactor, notifier Notifier, logger zerolog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{sched: sched, appts: appts, tx: tx, notifier: notifier, logger: logger}
}

func (s *Service) Scheduler() *Scheduler { return s.sched }

// -- Availability --

// CheckTimeSlotConflicts reports whether an appointment other than excludeID
// already holds the slot as confirmed. Pending and cancelled appointments
// never conflict.
func (s *Service) CheckTimeSlotConflicts(ctx context.Context, propertyID, excludeID uuid.UUID, date, tm string) (bool, error) {
	taken, err := s.appts.ExistsConfirmedAt(ctx, propertyID, excludeID, date, tm)
	if err != nil {
		return false, fmt.Errorf("check slot %s %s: %w", date, tm, err)
	}
	return taken, nil
}

// CheckAvailability validates the slot and then checks it for conflicts. A
// taken slot returns an invalid result together with ErrSlotConflict.
func (s *Service) CheckAvailability(ctx context.Context, propertyID, excludeID uuid.UUID, date, tm string) (ValidationResult, error) {
	if res := s.sched.ValidateSlot(date, tm); !res.Valid {
		return res, nil
	}
	taken, err := s.CheckTimeSlotConflicts(ctx, propertyID, excludeID, date, tm)
	if err != nil {
		return ValidationResult{}, err
	}
	if taken {
		return invalid(MsgSlotTaken), ErrSlotConflict
	}
	return valid(), nil
}

// AvailableSlots returns the generated slots for date that are neither
// confirmed for the property nor inside the minimum notice period.
func (s *Service) AvailableSlots(ctx context.Context, propertyID uuid.UUID, date string) ([]string, error) {
	slots := s.sched.GenerateTimeSlots(date)
	if len(slots) == 0 {
		return slots, nil
	}
	confirmed, err := s.appts.ConfirmedTimes(ctx, propertyID, date)
	if err != nil {
		return nil, fmt.Errorf("load confirmed slots: %w", err)
	}
	taken := make(map[string]bool, len(confirmed))
	for _, t := range confirmed {
		taken[t] = true
	}

	out := make([]string, 0, len(slots))
	for _, slot := range slots {
		if taken[slot] || !s.sched.ValidateNotice(date, slot).Valid {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

// -- Appointments --

// RequestViewing creates a pending appointment once the slot validates and is
// free.
func (s *Service) RequestViewing(ctx context.Context, req NewViewingRequest) (MutationResult, error) {
	if req.PropertyID == uuid.Nil {
		return s.rejected("property_id is required")
	}
	res, err := s.CheckAvailability(ctx, req.PropertyID, uuid.Nil, req.Date, req.Time)
	if errors.Is(err, ErrSlotConflict) {
		return MutationResult{Success: false, Message: res.Error}, err
	}
	if err != nil {
		return s.failure(err, "Failed to request viewing. Please try again")
	}
	if !res.Valid {
		return s.rejected(res.Error)
	}

	a := &Appointment{
		PropertyID:    req.PropertyID,
		TenantID:      req.TenantID,
		PreferredDate: req.Date,
		PreferredTime: req.Time,
		Status:        StatusPending,
		Message:       strPtr(req.Message),
	}
	if err := s.appts.Create(ctx, a); err != nil {
		return s.failure(err, "Failed to request viewing. Please try again")
	}

	s.notifier.AppointmentChanged(ctx, a, queue.EventRequested, ActorTenant)
	return MutationResult{Success: true, Message: "Viewing requested. The lessor will confirm shortly", Appointment: a}, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetByID(ctx, id)
}

// RescheduleAppointment moves the appointment to req's slot, overwrites the
// tenant note and returns it to pending. Callers validate the slot first.
func (s *Service) RescheduleAppointment(ctx context.Context, id uuid.UUID, req RescheduleRequest) (MutationResult, error) {
	a, err := s.appts.UpdateSchedule(ctx, id, req.Date, req.Time, strPtr(req.Note))
	if err != nil {
		return s.failure(err, "Failed to reschedule viewing. Please try again")
	}
	s.notifier.AppointmentChanged(ctx, a, queue.EventRescheduled, ActorTenant)
	return MutationResult{Success: true, Message: "Viewing rescheduled successfully", Appointment: a}, nil
}

// CancelAppointment cancels the appointment and stores note in the actor's
// notes column. Cancelled appointments cannot be changed again.
func (s *Service) CancelAppointment(ctx context.Context, id uuid.UUID, actor Actor, note string) (MutationResult, error) {
	notes := Notes{}
	if actor == ActorLessor {
		notes.Lessor = strPtr(note)
	} else {
		notes.Tenant = strPtr(note)
	}
	a, err := s.appts.UpdateStatus(ctx, id, StatusCancelled, notes)
	if err != nil {
		return s.failure(err, "Failed to cancel viewing. Please try again")
	}
	s.notifier.AppointmentChanged(ctx, a, queue.EventCancelled, actor)
	return MutationResult{Success: true, Message: "Viewing cancelled", Appointment: a}, nil
}

// DeclineAppointment is a cancellation made by the lessor.
func (s *Service) DeclineAppointment(ctx context.Context, id uuid.UUID, note string) (MutationResult, error) {
	return s.CancelAppointment(ctx, id, ActorLessor, note)
}

// ConfirmAppointment confirms a pending appointment. The conflict check and
// the status change share one transaction; the confirmed-slot unique index
// catches any confirmation that races past the check.
func (s *Service) ConfirmAppointment(ctx context.Context, id uuid.UUID, note string) (MutationResult, error) {
	var confirmed *Appointment
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a.Status == StatusCancelled {
			return ErrAppointmentCancelled
		}
		if !a.Status.CanTransitionTo(StatusConfirmed) {
			return ErrInvalidTransition
		}
		taken, err := s.CheckTimeSlotConflicts(ctx, a.PropertyID, a.ID, a.PreferredDate, a.PreferredTime)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotConflict
		}
		confirmed, err = s.appts.UpdateStatus(ctx, id, StatusConfirmed, Notes{Lessor: strPtr(note)})
		return err
	})
	if err != nil {
		return s.failure(err, "Failed to confirm viewing. Please try again")
	}

	s.notifier.AppointmentChanged(ctx, confirmed, queue.EventConfirmed, ActorLessor)
	at, err := s.sched.SlotInstant(confirmed.PreferredDate, confirmed.PreferredTime)
	if err != nil {
		s.logger.Warn().Err(err).Str("appointment_id", confirmed.ID.String()).Msg("no reminder for unparseable slot")
	} else {
		s.notifier.ScheduleReminder(ctx, confirmed, at)
	}
	return MutationResult{Success: true, Message: "Viewing confirmed", Appointment: confirmed}, nil
}

func (s *Service) ListForTenant(ctx context.Context, tenantID string, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByTenant(ctx, tenantID, limit, offset)
}

func (s *Service) ListForLessor(ctx context.Context, lessorID string, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.ListByLessor(ctx, lessorID, limit, offset)
}

// rejected reports a user-correctable validation failure.
func (s *Service) rejected(msg string) (MutationResult, error) {
	return MutationResult{Success: false, Message: msg}, &validationError{msg: msg}
}

// failure builds the result for a failed mutation. Known domain errors get a
// specific message; anything else is a storage failure and is wrapped.
func (s *Service) failure(err error, generic string) (MutationResult, error) {
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return MutationResult{Message: "Viewing not found"}, err
	case errors.Is(err, ErrPropertyNotFound):
		return MutationResult{Message: "Property not found"}, err
	case errors.Is(err, ErrAppointmentCancelled):
		return MutationResult{Message: "This viewing has been cancelled and can no longer be changed"}, err
	case errors.Is(err, ErrSlotConflict):
		return MutationResult{Message: MsgSlotTaken}, err
	case errors.Is(err, ErrInvalidTransition):
		return MutationResult{Message: "This viewing is already confirmed"}, err
	}
	return MutationResult{Message: generic}, fmt.Errorf("viewing storage: %w", err)
}
