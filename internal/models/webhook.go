package models

import "time"

// Webhook is an outbound HTTP subscription to CRM events
type Webhook struct {
	ID        int       `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Events    []string  `json:"events"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// GetID lets the CLI print just the id in quiet mode
func (w *Webhook) GetID() int {
	return w.ID
}

// Matches reports whether the webhook subscribes to eventType.
// "*" subscribes to everything.
func (w *Webhook) Matches(eventType string) bool {
	for _, e := range w.Events {
		if e == "*" || e == eventType {
			return true
		}
	}
	return false
}

// WebhookDelivery is the log row written for every delivery attempt
type WebhookDelivery struct {
	ID         string    `json:"id"`
	WebhookID  int       `json:"webhookId"`
	EventType  string    `json:"eventType"`
	StatusCode int       `json:"statusCode"`
	Error      string    `json:"error,omitempty"`
	DurationMs int64     `json:"durationMs"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Succeeded reports whether the receiver answered with a 2xx status
func (d *WebhookDelivery) Succeeded() bool {
	return d.Error == "" && d.StatusCode >= 200 && d.StatusCode < 300
}
