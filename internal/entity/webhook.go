package entity

import (
	"encoding/json"
	"time"
)

const (
	EventJobCompleted     = "job.completed"
	EventJobFailed        = "job.failed"
	EventCallInitiated    = "call.initiated"
	EventCallUpdated      = "call.updated"
	EventPaymentCompleted = "payment.completed"
)

// Webhook is a user-registered delivery endpoint.
type Webhook struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"` // empty means every event
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Subscribes reports whether the webhook wants the given event.
func (w *Webhook) Subscribes(event string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event || e == "*" {
			return true
		}
	}
	return false
}

// WebhookPayload is the signed body POSTed to subscribers.
type WebhookPayload struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// WebhookDelivery records one best-effort delivery attempt.
type WebhookDelivery struct {
	ID          string    `json:"id"`
	WebhookID   string    `json:"webhook_id"`
	Event       string    `json:"event"`
	URL         string    `json:"url"`
	StatusCode  int       `json:"status_code"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}
