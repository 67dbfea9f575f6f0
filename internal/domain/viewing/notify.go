package viewing

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/lettings/viewings/internal/platform/queue"
)

// ReminderLead is how long before a confirmed viewing the reminder fires.
const ReminderLead = 24 * time.Hour

// Actor identifies who performed a mutation.
type Actor string

const (
	ActorTenant Actor = "tenant"
	ActorLessor Actor = "lessor"
)

// Notifier publishes appointment changes. Implementations must not fail the
// caller's mutation; delivery problems are theirs to log.
type Notifier interface {
	AppointmentChanged(ctx context.Context, a *Appointment, event string, actor Actor)
	ScheduleReminder(ctx context.Context, a *Appointment, at time.Time)
}

// QueueNotifier enqueues notifications on asynq.
type QueueNotifier struct {
	q      queue.Enqueuer
	now    func() time.Time
	logger zerolog.Logger
}

func NewQueueNotifier(q queue.Enqueuer, now func() time.Time, logger zerolog.Logger) *QueueNotifier {
	if now == nil {
		now = time.Now
	}
	return &QueueNotifier{q: q, now: now, logger: logger}
}

func (n *QueueNotifier) AppointmentChanged(ctx context.Context, a *Appointment, event string, actor Actor) {
	task, err := queue.NewAppointmentChangedTask(queue.AppointmentChangedPayload{
		AppointmentID: a.ID.String(),
		PropertyID:    a.PropertyID.String(),
		TenantID:      a.TenantID,
		LessorID:      a.LessorID,
		Event:         event,
		Status:        string(a.Status),
		Date:          a.PreferredDate,
		Time:          a.PreferredTime,
		Actor:         string(actor),
		OccurredAt:    n.now().UTC(),
	})
	if err == nil {
		_, err = n.q.EnqueueContext(ctx, task)
	}
	if err != nil {
		n.logger.Error().Err(err).
			Str("appointment_id", a.ID.String()).
			Str("event", event).
			Msg("failed to enqueue appointment notification")
	}
}

// ScheduleReminder queues a reminder ReminderLead before at. Viewings closer
// than that get no reminder.
func (n *QueueNotifier) ScheduleReminder(ctx context.Context, a *Appointment, at time.Time) {
	fireAt := at.Add(-ReminderLead)
	if !fireAt.After(n.now()) {
		return
	}
	task, opts, err := queue.NewReminderTask(queue.ReminderPayload{
		AppointmentID: a.ID.String(),
		PropertyID:    a.PropertyID.String(),
		TenantID:      a.TenantID,
		LessorID:      a.LessorID,
		Date:          a.PreferredDate,
		Time:          a.PreferredTime,
	}, fireAt)
	if err == nil {
		_, err = n.q.EnqueueContext(ctx, task, opts...)
	}
	if err != nil && !queue.IsDuplicate(err) {
		n.logger.Error().Err(err).
			Str("appointment_id", a.ID.String()).
			Time("fire_at", fireAt).
			Msg("failed to schedule viewing reminder")
	}
}

// NopNotifier discards notifications.
type NopNotifier struct{}

func (NopNotifier) AppointmentChanged(context.Context, *Appointment, string, Actor) {}

func (NopNotifier) ScheduleReminder(context.Context, *Appointment, time.Time) {}
