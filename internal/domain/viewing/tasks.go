package viewing

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/lettings/viewings/internal/platform/notification"
	"github.com/lettings/viewings/internal/platform/queue"
)

// TaskHandler consumes the tasks produced by QueueNotifier and delivers
// them through a notification.Dispatcher.
type TaskHandler struct {
	appts  AppointmentRepository
	notify *notification.Dispatcher
	logger zerolog.Logger
}

func NewTaskHandler(appts AppointmentRepository, notify *notification.Dispatcher, logger zerolog.Logger) *TaskHandler {
	return &TaskHandler{appts: appts, notify: notify, logger: logger}
}

func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeAppointmentChanged, h.HandleAppointmentChanged)
	mux.HandleFunc(queue.TypeAppointmentReminder, h.HandleReminder)
}

// changeRecipient picks who hears about an event: the lessor for tenant
// actions, the tenant for lessor actions.
func changeRecipient(p queue.AppointmentChangedPayload) (templateID, recipient string, ok bool) {
	switch p.Event {
	case queue.EventRequested:
		return notification.TemplateViewingRequested, p.LessorID, true
	case queue.EventRescheduled:
		return notification.TemplateViewingRescheduled, p.LessorID, true
	case queue.EventConfirmed:
		return notification.TemplateViewingConfirmed, p.TenantID, true
	case queue.EventCancelled:
		if p.Actor == string(ActorLessor) {
			return notification.TemplateViewingCancelled, p.TenantID, true
		}
		return notification.TemplateViewingCancelled, p.LessorID, true
	}
	return "", "", false
}

func (h *TaskHandler) HandleAppointmentChanged(ctx context.Context, t *asynq.Task) error {
	p, err := queue.DecodeAppointmentChanged(t)
	if err != nil {
		return err
	}
	log := h.logger.With().
		Str("appointment_id", p.AppointmentID).
		Str("event", p.Event).
		Str("actor", p.Actor).
		Logger()

	templateID, recipient, ok := changeRecipient(p)
	if !ok {
		log.Warn().Msg("unknown appointment event dropped")
		return nil
	}
	_, err = h.notify.SendFromTemplate(ctx, templateID, map[string]string{
		"date":  p.Date,
		"time":  p.Time,
		"actor": p.Actor,
	}, recipient)
	if err != nil {
		return err
	}
	log.Debug().Str("recipient", recipient).Msg("appointment change delivered")
	return nil
}

// HandleReminder sends the reminder to both parties only if the appointment
// is still confirmed for the slot the reminder was scheduled for.
func (h *TaskHandler) HandleReminder(ctx context.Context, t *asynq.Task) error {
	p, err := queue.DecodeReminder(t)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(p.AppointmentID)
	if err != nil {
		return errors.Join(err, asynq.SkipRetry)
	}

	a, err := h.appts.GetByID(ctx, id)
	if errors.Is(err, ErrAppointmentNotFound) {
		h.logger.Warn().Str("appointment_id", p.AppointmentID).Msg("reminder for missing appointment dropped")
		return nil
	}
	if err != nil {
		return err
	}
	if !a.Occupies() || a.PreferredDate != p.Date || a.PreferredTime != p.Time {
		h.logger.Debug().
			Str("appointment_id", p.AppointmentID).
			Str("status", string(a.Status)).
			Msg("stale viewing reminder skipped")
		return nil
	}

	data := map[string]string{"date": a.PreferredDate, "time": a.PreferredTime}
	var errs []error
	for _, recipient := range []string{a.TenantID, a.LessorID} {
		if _, err := h.notify.SendFromTemplate(ctx, notification.TemplateViewingReminder, data, recipient); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
