// Package queue carries viewing notifications over Redis with asynq.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeAppointmentChanged  = "appointment:changed"
	TypeAppointmentReminder = "appointment:reminder"

	QueueDefault  = "default"
	QueueCritical = "critical"
)

// Event names carried by AppointmentChangedPayload.
const (
	EventRequested   = "requested"
	EventRescheduled = "rescheduled"
	EventConfirmed   = "confirmed"
	EventCancelled   = "cancelled"
)

type AppointmentChangedPayload struct {
	AppointmentID string    `json:"appointment_id"`
	PropertyID    string    `json:"property_id"`
	TenantID      string    `json:"tenant_id"`
	LessorID      string    `json:"lessor_id"`
	Event         string    `json:"event"`
	Status        string    `json:"status"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	Actor         string    `json:"actor,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type ReminderPayload struct {
	AppointmentID string `json:"appointment_id"`
	PropertyID    string `json:"property_id"`
	TenantID      string `json:"tenant_id"`
	LessorID      string `json:"lessor_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
}

func NewAppointmentChangedTask(p AppointmentChangedPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", TypeAppointmentChanged, err)
	}
	return asynq.NewTask(TypeAppointmentChanged, b,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(5),
	), nil
}

// NewReminderTask schedules a reminder at fireAt. The task ID is derived from
// the appointment and slot so repeated confirmations of the same slot do not
// queue duplicates.
func NewReminderTask(p ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal %s payload: %w", TypeAppointmentReminder, err)
	}
	task := asynq.NewTask(TypeAppointmentReminder, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.Queue(QueueDefault),
		asynq.TaskID(ReminderTaskID(p)),
		asynq.MaxRetry(3),
	}
	return task, opts, nil
}

func ReminderTaskID(p ReminderPayload) string {
	return fmt.Sprintf("reminder:%s:%sT%s", p.AppointmentID, p.Date, p.Time)
}

func DecodeAppointmentChanged(t *asynq.Task) (AppointmentChangedPayload, error) {
	var p AppointmentChangedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}

func DecodeReminder(t *asynq.Task) (ReminderPayload, error) {
	var p ReminderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}
