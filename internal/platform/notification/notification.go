// Package notification renders and delivers viewing notifications to
// tenants and lessors.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Template IDs for the built-in viewing templates.
const (
	TemplateViewingRequested   = "viewing-requested"
	TemplateViewingRescheduled = "viewing-rescheduled"
	TemplateViewingConfirmed   = "viewing-confirmed"
	TemplateViewingCancelled   = "viewing-cancelled"
	TemplateViewingReminder    = "viewing-reminder"
)

// Message is a rendered notification addressed to a user id.
type Message struct {
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	SentAt     time.Time         `json:"sent_at"`
}

// Sender delivers a rendered message.
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// -- Templates --

// Template defines a reusable notification with {{key}} placeholders.
type Template struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateEngine creates a TemplateEngine with the viewing templates
// registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range []Template{
		{
			ID:      TemplateViewingRequested,
			Subject: "New viewing request for {{date}}",
			Body:    "A viewing has been requested on {{date}} at {{time}}. Please confirm or decline it.",
		},
		{
			ID:      TemplateViewingRescheduled,
			Subject: "Viewing moved to {{date}}",
			Body:    "The viewing has been moved to {{date}} at {{time}} and is awaiting confirmation.",
		},
		{
			ID:      TemplateViewingConfirmed,
			Subject: "Viewing confirmed for {{date}}",
			Body:    "Your viewing on {{date}} at {{time}} has been confirmed.",
		},
		{
			ID:      TemplateViewingCancelled,
			Subject: "Viewing on {{date}} cancelled",
			Body:    "The viewing on {{date}} at {{time}} has been cancelled by the {{actor}}.",
		},
		{
			ID:      TemplateViewingReminder,
			Subject: "Viewing tomorrow at {{time}}",
			Body:    "Reminder: you have a property viewing on {{date}} at {{time}}.",
		},
	} {
		e.templates[t.ID] = t
	}
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render looks up a template by ID and replaces each {{key}} with data[key].
// Placeholders without data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// -- Dispatcher --

// Dispatcher renders templates and hands the result to a Sender.
type Dispatcher struct {
	templates *TemplateEngine
	sender    Sender
	now       func() time.Time
}

func NewDispatcher(tpl *TemplateEngine, sender Sender) *Dispatcher {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	return &Dispatcher{templates: tpl, sender: sender, now: time.Now}
}

// SendFromTemplate renders templateID with data and sends it to recipient.
// An empty recipient is an error; the message is returned either way once
// rendered.
func (d *Dispatcher) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Message, error) {
	subject, body, err := d.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	m := &Message{
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		TemplateID: templateID,
		Data:       data,
		SentAt:     d.now().UTC(),
	}
	if recipient == "" {
		return m, fmt.Errorf("%s: no recipient", templateID)
	}
	if err := d.sender.Send(ctx, m); err != nil {
		return m, fmt.Errorf("send %s to %s: %w", templateID, recipient, err)
	}
	return m, nil
}

// -- Senders --

// LogSender delivers messages as structured log lines. It stands in for a
// mail or push gateway.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, m *Message) error {
	s.logger.Info().
		Str("recipient", m.Recipient).
		Str("template_id", m.TemplateID).
		Str("subject", m.Subject).
		Str("body", m.Body).
		Msg("notification sent")
	return nil
}
